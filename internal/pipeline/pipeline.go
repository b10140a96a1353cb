package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"larvadet/internal/alerting"
	"larvadet/internal/classifier_client"
	"larvadet/internal/control"
	"larvadet/internal/decision"
	"larvadet/internal/models"
	"larvadet/internal/notifier_client"
	"larvadet/internal/repository"
	"larvadet/internal/storage"
)

// Pipeline runs background classification jobs. Each image gets exactly one
// classification attempt: duplicate enqueues are no-ops while a job is in
// flight or once a result row exists, and a failed attempt is terminal.
type Pipeline struct {
	images     repository.ImageRepository
	results    repository.ClassificationRepository
	devices    repository.DeviceRepository
	store      *storage.Store
	classifier *classifier_client.Client
	notifier   *notifier_client.Client
	alerts     *alerting.Manager
	control    *control.Service
	logger     *zap.Logger
	timeout    time.Duration
	now        func() time.Time

	jobs chan string
	wg   sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(
	images repository.ImageRepository,
	results repository.ClassificationRepository,
	devices repository.DeviceRepository,
	store *storage.Store,
	classifier *classifier_client.Client,
	notifier *notifier_client.Client,
	alerts *alerting.Manager,
	controlSvc *control.Service,
	logger *zap.Logger,
	timeout time.Duration,
	queueSize int,
) *Pipeline {
	return &Pipeline{
		images:     images,
		results:    results,
		devices:    devices,
		store:      store,
		classifier: classifier,
		notifier:   notifier,
		alerts:     alerts,
		control:    controlSvc,
		logger:     logger,
		timeout:    timeout,
		now:        time.Now,
		jobs:       make(chan string, queueSize),
		inflight:   make(map[string]struct{}),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled and
// Wait returns once they have drained.
func (p *Pipeline) Start(ctx context.Context, workers int) {
	p.logger.Info("Classification pipeline started", zap.Int("workers", workers))
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case imageID := <-p.jobs:
					p.Process(ctx, imageID)
				}
			}
		}()
	}
}

// Wait blocks until all workers have stopped.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Enqueue schedules a classification job for the image. Returns false when
// the job is a duplicate (already in flight or already classified) or the
// queue is full.
func (p *Pipeline) Enqueue(imageID string) bool {
	p.mu.Lock()
	if _, ok := p.inflight[imageID]; ok {
		p.mu.Unlock()
		return false
	}
	p.inflight[imageID] = struct{}{}
	p.mu.Unlock()

	existing, err := p.results.GetByImageID(imageID)
	if err != nil {
		p.logger.Error("Failed to check for existing classification", zap.String("image_id", imageID), zap.Error(err))
	}
	if existing != nil {
		p.release(imageID)
		return false
	}

	select {
	case p.jobs <- imageID:
		return true
	default:
		p.release(imageID)
		p.logger.Warn("Classification queue full, dropping job", zap.String("image_id", imageID))
		return false
	}
}

func (p *Pipeline) release(imageID string) {
	p.mu.Lock()
	delete(p.inflight, imageID)
	p.mu.Unlock()
}

// Process runs one classification job to completion. Exported so tests can
// drive the pipeline synchronously without the worker pool.
func (p *Pipeline) Process(ctx context.Context, imageID string) {
	defer p.release(imageID)

	// A result may have appeared between enqueue and execution.
	existing, err := p.results.GetByImageID(imageID)
	if err != nil {
		p.logger.Error("Failed to check for existing classification", zap.String("image_id", imageID), zap.Error(err))
		return
	}
	if existing != nil {
		p.logger.Debug("Image already classified, skipping", zap.String("image_id", imageID))
		return
	}

	img, err := p.images.GetImageByID(imageID)
	if err != nil || img == nil {
		p.logger.Error("Failed to load image for classification", zap.String("image_id", imageID), zap.Error(err))
		return
	}

	imageData, err := p.store.Load(img.ImagePath)
	if err != nil {
		p.recordFailure(ctx, img, err)
		return
	}

	classifyCtx, cancel := context.WithTimeout(ctx, p.timeout)
	resp, rawPayload, err := p.classifier.Detect(classifyCtx, img.ID+".jpg", imageData)
	cancel()
	if err != nil {
		p.recordFailure(ctx, img, err)
		return
	}

	summary := classifier_client.Parse(resp)
	result := &models.ClassificationResult{
		ID:             uuid.NewString(),
		ImageID:        img.ID,
		DeviceID:       img.DeviceID,
		DeviceCode:     img.DeviceCode,
		Status:         models.ClassificationSuccess,
		TotalObjects:   summary.TotalObjects,
		TotalLarvae:    summary.TotalLarvae,
		TotalNonLarvae: summary.TotalNonLarvae,
		AvgConfidence:  summary.AvgConfidence,
		RawPayload:     rawPayload,
		CreatedAt:      p.now(),
	}
	if err := p.results.SaveResult(result); err != nil {
		p.logger.Error("Failed to save classification result", zap.String("image_id", img.ID), zap.Error(err))
		return
	}

	verdict := decision.Decide(summary.TotalLarvae)
	p.logger.Info("Classification completed",
		zap.String("image_id", img.ID),
		zap.String("device_code", img.DeviceCode),
		zap.String("verdict", string(verdict)),
		zap.Int("total_larvae", summary.TotalLarvae))

	device, err := p.devices.GetByCode(img.DeviceCode)
	if err != nil || device == nil {
		p.logger.Error("Failed to load device for decision application", zap.String("device_code", img.DeviceCode), zap.Error(err))
		return
	}

	if err := p.alerts.Apply(verdict, device, summary.TotalLarvae); err != nil {
		p.logger.Error("Failed to apply alert transition", zap.String("device_code", device.DeviceCode), zap.Error(err))
	}

	if err := p.control.AutoUpdate(device.DeviceCode, decision.Command(verdict)); err != nil {
		p.logger.Error("Failed to apply automatic control update", zap.String("device_code", device.DeviceCode), zap.Error(err))
	}

	// Dashboard push is best-effort and must never fail the pipeline.
	if err := p.notifier.UpdateAll(ctx, string(verdict), summary.TotalLarvae); err != nil {
		p.logger.Warn("Failed to push verdict to dashboard", zap.String("device_code", device.DeviceCode), zap.Error(err))
	}
}

// recordFailure persists the terminal failed result for an image. No alert,
// control, or decision side effects follow a failed classification.
func (p *Pipeline) recordFailure(ctx context.Context, img *models.Image, cause error) {
	p.logger.Error("Classification failed",
		zap.String("image_id", img.ID),
		zap.String("device_code", img.DeviceCode),
		zap.Error(cause))

	result := &models.ClassificationResult{
		ID:           uuid.NewString(),
		ImageID:      img.ID,
		DeviceID:     img.DeviceID,
		DeviceCode:   img.DeviceCode,
		Status:       models.ClassificationFailed,
		ErrorMessage: cause.Error(),
		CreatedAt:    p.now(),
	}
	if err := p.results.SaveResult(result); err != nil {
		p.logger.Error("Failed to save failed classification result", zap.String("image_id", img.ID), zap.Error(err))
	}

	if err := p.notifier.UpdateStatus(ctx, "INFERENCE ERROR"); err != nil {
		p.logger.Warn("Failed to push error status to dashboard", zap.String("device_code", img.DeviceCode), zap.Error(err))
	}
}
