package control

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"larvadet/internal/models"
	"larvadet/internal/repository"
)

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrDeviceInactive = errors.New("device is not active")
	ErrStateConflict  = errors.New("control state conflict")
)

// PollResponse is the reduced view the sensor node receives when polling.
type PollResponse struct {
	Mode      string    `json:"mode"`
	Command   string    `json:"command"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Service is the single writer for per-device control state. All mutations
// for one device are serialized through a per-device mutex, and the
// repository update compares-and-swaps a version column so the discipline
// also holds against writers in other processes.
type Service struct {
	devices  repository.DeviceRepository
	controls repository.ControlRepository
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(devices repository.DeviceRepository, controls repository.ControlRepository, logger *zap.Logger) *Service {
	return &Service{
		devices:  devices,
		controls: controls,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// deviceLock returns the mutex serializing writes for one device code.
func (s *Service) deviceLock(deviceCode string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[deviceCode]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[deviceCode] = lock
	}
	return lock
}

// activeDevice loads the device and rejects mutations for inactive ones.
func (s *Service) activeDevice(deviceCode string) (*models.Device, error) {
	device, err := s.devices.GetByCode(deviceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}
	if !device.IsActive {
		return nil, ErrDeviceInactive
	}
	return device, nil
}

// ManualSet applies a manual override. It is valid from any prior state:
// mode becomes MANUAL, status PENDING, and the device is expected to
// acknowledge the command after polling it.
func (s *Service) ManualSet(deviceCode, command string, message string) (*models.DeviceControl, error) {
	lock := s.deviceLock(deviceCode)
	lock.Lock()
	defer lock.Unlock()

	device, err := s.activeDevice(deviceCode)
	if err != nil {
		return nil, err
	}

	if message == "" {
		message = fmt.Sprintf("Control set to %s", command)
	}

	ctl, err := s.controls.GetByDeviceID(device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load control state: %w", err)
	}

	if ctl == nil {
		ctl = &models.DeviceControl{
			ID:         uuid.NewString(),
			DeviceID:   device.ID,
			DeviceCode: device.DeviceCode,
			Mode:       models.ModeManual,
			Command:    command,
			Status:     models.StatusPending,
			Message:    message,
			Version:    1,
			CreatedAt:  s.now(),
			UpdatedAt:  s.now(),
		}
		if err := s.controls.Insert(ctl); err != nil {
			return nil, fmt.Errorf("failed to create control state: %w", err)
		}
	} else {
		ctl.Mode = models.ModeManual
		ctl.Command = command
		ctl.Status = models.StatusPending
		ctl.Message = message
		ctl.UpdatedAt = s.now()
		if err := s.controls.Update(ctl); err != nil {
			return nil, fmt.Errorf("failed to update control state: %w", err)
		}
	}

	s.logger.Info("Manual control set",
		zap.String("device_code", deviceCode),
		zap.String("command", command))
	return ctl, nil
}

// AutoUpdate applies an automatic decision. It is dropped without error when
// the device is under a manual override, so a pending manual command is never
// silently overwritten.
func (s *Service) AutoUpdate(deviceCode, command string) error {
	lock := s.deviceLock(deviceCode)
	lock.Lock()
	defer lock.Unlock()

	device, err := s.activeDevice(deviceCode)
	if err != nil {
		return err
	}

	ctl, err := s.controls.GetByDeviceID(device.ID)
	if err != nil {
		return fmt.Errorf("failed to load control state: %w", err)
	}

	if ctl != nil && ctl.Mode == models.ModeManual {
		s.logger.Debug("Dropping automatic update, manual override active",
			zap.String("device_code", deviceCode),
			zap.String("manual_status", ctl.Status))
		return nil
	}

	if ctl == nil {
		ctl = &models.DeviceControl{
			ID:         uuid.NewString(),
			DeviceID:   device.ID,
			DeviceCode: device.DeviceCode,
			Mode:       models.ModeAuto,
			Command:    command,
			Status:     models.StatusAuto,
			Message:    "Automatic control from classification",
			Version:    1,
			CreatedAt:  s.now(),
			UpdatedAt:  s.now(),
		}
		if err := s.controls.Insert(ctl); err != nil {
			return fmt.Errorf("failed to create control state: %w", err)
		}
	} else {
		ctl.Mode = models.ModeAuto
		ctl.Command = command
		ctl.Status = models.StatusAuto
		ctl.Message = "Automatic control from classification"
		ctl.UpdatedAt = s.now()
		if err := s.controls.Update(ctl); err != nil {
			return fmt.Errorf("failed to update control state: %w", err)
		}
	}

	s.logger.Info("Automatic control applied",
		zap.String("device_code", deviceCode),
		zap.String("command", command))
	return nil
}

// Acknowledge records the device's execution outcome for a pending manual
// command. Only valid when mode=MANUAL and status=PENDING; anything else is
// a state conflict and leaves the row untouched. The device stays in MANUAL
// after acknowledging; only an explicit future override or reset changes it.
func (s *Service) Acknowledge(deviceCode, outcome string, message string) (*models.DeviceControl, error) {
	if outcome != models.StatusExecuted && outcome != models.StatusFailed {
		return nil, fmt.Errorf("%w: invalid acknowledgement outcome %q", ErrStateConflict, outcome)
	}

	lock := s.deviceLock(deviceCode)
	lock.Lock()
	defer lock.Unlock()

	device, err := s.activeDevice(deviceCode)
	if err != nil {
		return nil, err
	}

	ctl, err := s.controls.GetByDeviceID(device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load control state: %w", err)
	}
	if ctl == nil || ctl.Mode != models.ModeManual || ctl.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: no pending manual command to acknowledge", ErrStateConflict)
	}

	if message == "" {
		message = fmt.Sprintf("Status updated to %s", outcome)
	}

	ctl.Status = outcome
	ctl.Message = message
	ctl.UpdatedAt = s.now()
	if err := s.controls.Update(ctl); err != nil {
		return nil, fmt.Errorf("failed to update control state: %w", err)
	}

	s.logger.Info("Control acknowledged",
		zap.String("device_code", deviceCode),
		zap.String("outcome", outcome))
	return ctl, nil
}

// Poll returns the view the sensor node acts on. AUTO mode always reports
// status AUTO; with no row yet the device gets the safe default.
func (s *Service) Poll(deviceCode string) (*PollResponse, error) {
	device, err := s.devices.GetByCode(deviceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}

	ctl, err := s.controls.GetByDeviceID(device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load control state: %w", err)
	}

	if ctl == nil {
		return &PollResponse{
			Mode:      models.ModeAuto,
			Command:   models.CommandStop,
			Status:    models.StatusAuto,
			Message:   "No control configured, safe default",
			Timestamp: s.now(),
		}, nil
	}

	status := ctl.Status
	if ctl.Mode == models.ModeAuto {
		status = models.StatusAuto
	}

	return &PollResponse{
		Mode:      ctl.Mode,
		Command:   ctl.Command,
		Status:    status,
		Message:   ctl.Message,
		Timestamp: ctl.UpdatedAt,
	}, nil
}

// Status returns the full control record, or nil when none exists yet.
func (s *Service) Status(deviceCode string) (*models.DeviceControl, error) {
	device, err := s.devices.GetByCode(deviceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}
	return s.controls.GetByDeviceID(device.ID)
}

// FallbackAction derives the synchronous upload response action from the
// current control state, never from a fresh classification. Only a pending
// manual ACTIVATE keeps the node awake; everything else sends it to sleep.
func (s *Service) FallbackAction(device *models.Device) string {
	ctl, err := s.controls.GetByDeviceID(device.ID)
	if err != nil {
		s.logger.Warn("Failed to load control state for fallback action",
			zap.String("device_code", device.DeviceCode), zap.Error(err))
		return "SLEEP"
	}
	if ctl != nil && ctl.Mode == models.ModeManual &&
		ctl.Status == models.StatusPending && ctl.Command == models.CommandActivate {
		return "ACTIVATE"
	}
	return "SLEEP"
}
