package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

// LocationTracker holds the transient current and last-known device fixes.
// Neither is ever persisted.
type LocationTracker struct {
	provider domain.LocationProvider
	logger   *logger.Logger
	now      func() time.Time

	mu        sync.RWMutex
	current   *domain.DeviceLocation
	lastKnown *domain.DeviceLocation
}

func NewLocationTracker(provider domain.LocationProvider, log *logger.Logger) *LocationTracker {
	return &LocationTracker{
		provider: provider,
		logger:   log.Named("location_tracker"),
		now:      time.Now,
	}
}

// Capture asks the provider for a fresh fix. When that fails the last-known
// fix is reused with source last_known. A cancelled ctx abandons the capture
// without touching any state.
func (t *LocationTracker) Capture(ctx context.Context) (*domain.DeviceLocation, error) {
	fix, err := t.provider.CaptureCurrentLocation(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if err == nil && (fix == nil || !fix.Coordinates().Valid()) {
		err = fmt.Errorf("%w: provider returned out-of-range coordinates", domain.ErrLocationUnavailable)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		if t.lastKnown == nil {
			t.logger.Debug("LocationTracker.Capture: no fix available", zap.Error(err))
			if errors.Is(err, domain.ErrLocationUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrLocationUnavailable, err)
		}
		cached := *t.lastKnown
		cached.Source = domain.SourceLastKnown
		t.current = &cached
		t.logger.Debug("LocationTracker.Capture: using last known fix", zap.Error(err))
		out := cached
		return &out, nil
	}

	rec := *fix
	if rec.Source == "" {
		rec.Source = domain.SourceGPS
	}
	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = t.now().UTC()
	}
	t.current = &rec
	last := rec
	t.lastKnown = &last

	out := rec
	return &out, nil
}

// Current returns a copy of the current fix, or nil.
func (t *LocationTracker) Current() *domain.DeviceLocation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyFix(t.current)
}

// LastKnown returns a copy of the last successful fix, or nil.
func (t *LocationTracker) LastKnown() *domain.DeviceLocation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyFix(t.lastKnown)
}

func copyFix(d *domain.DeviceLocation) *domain.DeviceLocation {
	if d == nil {
		return nil
	}
	out := *d
	return &out
}
