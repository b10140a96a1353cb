// Package repositorytest provides in-memory repository implementations for
// tests. The fakes are safe for concurrent use and the control fake honours
// the same version compare-and-swap contract as the SQL implementation.
package repositorytest

import (
	"sync"
	"time"

	"larvadet/internal/models"
	"larvadet/internal/repository"
)

type FakeDeviceRepo struct {
	mu      sync.Mutex
	Devices map[string]*models.Device
	Auths   map[string]*models.DeviceAuth
}

func NewFakeDeviceRepo() *FakeDeviceRepo {
	return &FakeDeviceRepo{
		Devices: make(map[string]*models.Device),
		Auths:   make(map[string]*models.DeviceAuth),
	}
}

func (f *FakeDeviceRepo) Add(device *models.Device) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Devices[device.DeviceCode] = device
}

func (f *FakeDeviceRepo) AddAuth(auth *models.DeviceAuth) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Auths[auth.DeviceCode] = auth
}

func (f *FakeDeviceRepo) GetByCode(code string) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Devices[code], nil
}

func (f *FakeDeviceRepo) GetAuthByCode(code string) (*models.DeviceAuth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Auths[code], nil
}

type FakeImageRepo struct {
	mu      sync.Mutex
	Images  map[string]*models.Image
	SaveErr error
}

func NewFakeImageRepo() *FakeImageRepo {
	return &FakeImageRepo{Images: make(map[string]*models.Image)}
}

func (f *FakeImageRepo) SaveImage(img *models.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.Images[img.ID] = img
	return nil
}

func (f *FakeImageRepo) GetImageByID(id string) (*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Images[id], nil
}

func (f *FakeImageRepo) ListByDeviceCode(deviceCode string, limit int) ([]*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Image
	for _, img := range f.Images {
		if img.DeviceCode == deviceCode && len(out) < limit {
			out = append(out, img)
		}
	}
	return out, nil
}

type FakeClassificationRepo struct {
	mu      sync.Mutex
	Results map[string]*models.ClassificationResult // keyed by image ID
}

func NewFakeClassificationRepo() *FakeClassificationRepo {
	return &FakeClassificationRepo{Results: make(map[string]*models.ClassificationResult)}
}

func (f *FakeClassificationRepo) SaveResult(result *models.ClassificationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results[result.ImageID] = result
	return nil
}

func (f *FakeClassificationRepo) GetByImageID(imageID string) (*models.ClassificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Results[imageID], nil
}

func (f *FakeClassificationRepo) GetLatestByDeviceCode(deviceCode string) (*models.ClassificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.ClassificationResult
	for _, r := range f.Results {
		if r.DeviceCode != deviceCode {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (f *FakeClassificationRepo) ListByDeviceCode(deviceCode string, limit int) ([]*models.ClassificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ClassificationResult
	for _, r := range f.Results {
		if r.DeviceCode == deviceCode && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *FakeClassificationRepo) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Results)
}

type FakeAlertRepo struct {
	mu     sync.Mutex
	Alerts []*models.Alert
}

func NewFakeAlertRepo() *FakeAlertRepo {
	return &FakeAlertRepo{}
}

func (f *FakeAlertRepo) CreateAlert(alert *models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Alerts = append(f.Alerts, alert)
	return nil
}

func (f *FakeAlertRepo) GetOpenByDeviceID(deviceID string) (*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.Alerts {
		if a.DeviceID == deviceID && a.ResolvedAt == nil {
			return a, nil
		}
	}
	return nil, nil
}

func (f *FakeAlertRepo) ResolveAlert(id string, resolvedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.Alerts {
		if a.ID == id && a.ResolvedAt == nil {
			t := resolvedAt
			a.ResolvedAt = &t
		}
	}
	return nil
}

func (f *FakeAlertRepo) ListAlerts(resolved *bool) ([]*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Alert
	for _, a := range f.Alerts {
		if resolved == nil ||
			(*resolved && a.ResolvedAt != nil) ||
			(!*resolved && a.ResolvedAt == nil) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *FakeAlertRepo) OpenCount(deviceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.Alerts {
		if a.DeviceID == deviceID && a.ResolvedAt == nil {
			count++
		}
	}
	return count
}

type FakeControlRepo struct {
	mu       sync.Mutex
	Controls map[string]*models.DeviceControl // keyed by device ID
}

func NewFakeControlRepo() *FakeControlRepo {
	return &FakeControlRepo{Controls: make(map[string]*models.DeviceControl)}
}

func (f *FakeControlRepo) GetByDeviceID(deviceID string) (*models.DeviceControl, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ctl, ok := f.Controls[deviceID]
	if !ok {
		return nil, nil
	}
	copied := *ctl
	return &copied, nil
}

func (f *FakeControlRepo) Insert(ctl *models.DeviceControl) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *ctl
	f.Controls[ctl.DeviceID] = &copied
	return nil
}

func (f *FakeControlRepo) Update(ctl *models.DeviceControl) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.Controls[ctl.DeviceID]
	if !ok || stored.Version != ctl.Version {
		return repository.ErrVersionConflict
	}
	copied := *ctl
	copied.Version = ctl.Version + 1
	f.Controls[ctl.DeviceID] = &copied
	ctl.Version++
	return nil
}
