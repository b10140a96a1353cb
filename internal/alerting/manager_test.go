package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"larvadet/internal/decision"
	"larvadet/internal/models"
	"larvadet/internal/repository/repositorytest"
)

func newTestManager() (*Manager, *repositorytest.FakeAlertRepo) {
	alerts := repositorytest.NewFakeAlertRepo()
	m := NewManager(alerts, decision.SeverityTable{Warning: 3, Critical: 10}, nil, zap.NewNop())
	return m, alerts
}

func testDevice() *models.Device {
	return &models.Device{ID: "dev-1", DeviceCode: "node01", IsActive: true}
}

func TestApplyBahayaOpensAlert(t *testing.T) {
	m, alerts := newTestManager()
	device := testDevice()

	require.NoError(t, m.Apply(decision.VerdictBahaya, device, 5))

	assert.Equal(t, 1, alerts.OpenCount(device.ID))
	open, _ := alerts.GetOpenByDeviceID(device.ID)
	require.NotNil(t, open)
	assert.Equal(t, 5, open.LarvaeCount)
	assert.Equal(t, models.SeverityWarning, open.Severity)
}

func TestApplyBahayaIsIdempotent(t *testing.T) {
	m, alerts := newTestManager()
	device := testDevice()

	require.NoError(t, m.Apply(decision.VerdictBahaya, device, 2))
	require.NoError(t, m.Apply(decision.VerdictBahaya, device, 7))
	require.NoError(t, m.Apply(decision.VerdictBahaya, device, 12))

	// At most one unresolved alert per device, ever.
	assert.Equal(t, 1, alerts.OpenCount(device.ID))
	assert.Len(t, alerts.Alerts, 1)
}

func TestApplyAmanResolvesOpenAlert(t *testing.T) {
	m, alerts := newTestManager()
	device := testDevice()

	require.NoError(t, m.Apply(decision.VerdictBahaya, device, 4))
	require.NoError(t, m.Apply(decision.VerdictAman, device, 0))

	assert.Equal(t, 0, alerts.OpenCount(device.ID))
	require.Len(t, alerts.Alerts, 1)
	assert.NotNil(t, alerts.Alerts[0].ResolvedAt)
}

func TestApplyAmanWithoutOpenAlertIsNoOp(t *testing.T) {
	m, alerts := newTestManager()

	require.NoError(t, m.Apply(decision.VerdictAman, testDevice(), 0))

	assert.Empty(t, alerts.Alerts)
}

func TestAlertReopensAfterResolution(t *testing.T) {
	m, alerts := newTestManager()
	device := testDevice()

	require.NoError(t, m.Apply(decision.VerdictBahaya, device, 1))
	require.NoError(t, m.Apply(decision.VerdictAman, device, 0))
	require.NoError(t, m.Apply(decision.VerdictBahaya, device, 11))

	assert.Equal(t, 1, alerts.OpenCount(device.ID))
	assert.Len(t, alerts.Alerts, 2)
	open, _ := alerts.GetOpenByDeviceID(device.ID)
	assert.Equal(t, models.SeverityCritical, open.Severity)
}
