package alerting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"larvadet/internal/decision"
	"larvadet/internal/models"
	"larvadet/internal/repository"
	"larvadet/internal/telegram_notifier"
)

// Manager maintains the at-most-one-open-alert-per-device invariant.
// BAHAYA opens an alert unless one is already open; AMAN resolves the open
// one if present. Both directions are idempotent.
type Manager struct {
	alerts   repository.AlertRepository
	severity decision.SeverityTable
	telegram *telegram_notifier.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewManager(alerts repository.AlertRepository, severity decision.SeverityTable, telegram *telegram_notifier.Notifier, logger *zap.Logger) *Manager {
	return &Manager{
		alerts:   alerts,
		severity: severity,
		telegram: telegram,
		logger:   logger,
		now:      time.Now,
	}
}

// Apply reconciles the device's alert state with the given verdict.
func (m *Manager) Apply(verdict decision.Verdict, device *models.Device, larvaeCount int) error {
	open, err := m.alerts.GetOpenByDeviceID(device.ID)
	if err != nil {
		return fmt.Errorf("failed to look up open alert: %w", err)
	}

	switch verdict {
	case decision.VerdictBahaya:
		if open != nil {
			m.logger.Debug("Alert already open for device, skipping",
				zap.String("device_code", device.DeviceCode),
				zap.String("alert_id", open.ID))
			return nil
		}

		alert := &models.Alert{
			ID:          uuid.NewString(),
			DeviceID:    device.ID,
			DeviceCode:  device.DeviceCode,
			LarvaeCount: larvaeCount,
			Severity:    m.severity.Severity(larvaeCount),
			Message:     fmt.Sprintf("%d larvae detected", larvaeCount),
			CreatedAt:   m.now(),
		}
		if err := m.alerts.CreateAlert(alert); err != nil {
			return fmt.Errorf("failed to create alert: %w", err)
		}

		m.logger.Info("Alert opened",
			zap.String("device_code", device.DeviceCode),
			zap.Int("larvae_count", larvaeCount),
			zap.String("severity", alert.Severity))
		m.telegram.AlertOpened(alert)

	case decision.VerdictAman:
		if open == nil {
			return nil
		}
		if err := m.alerts.ResolveAlert(open.ID, m.now()); err != nil {
			return fmt.Errorf("failed to resolve alert: %w", err)
		}

		m.logger.Info("Alert resolved",
			zap.String("device_code", device.DeviceCode),
			zap.String("alert_id", open.ID))
		m.telegram.AlertResolved(open)
	}

	return nil
}
