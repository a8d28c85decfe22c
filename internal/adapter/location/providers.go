// Package location provides device location sources for the tracker.
package location

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sinyoro/market-service/internal/listing/domain"
)

// StaticProvider always reports one configured coordinate, e.g. a market
// kiosk with a fixed position.
type StaticProvider struct {
	fix domain.DeviceLocation
}

func NewStaticProvider(lat, lng, accuracy float64) (*StaticProvider, error) {
	coords := domain.Coordinates{Latitude: lat, Longitude: lng, Accuracy: accuracy}
	if !coords.Valid() {
		return nil, fmt.Errorf("static location %.5f,%.5f out of range", lat, lng)
	}
	return &StaticProvider{fix: domain.DeviceLocation{
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  accuracy,
		Source:    domain.SourceManual,
	}}, nil
}

func (p *StaticProvider) CaptureCurrentLocation(ctx context.Context) (*domain.DeviceLocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fix := p.fix
	fix.CapturedAt = time.Now().UTC()
	return &fix, nil
}

// ReportedProvider returns the latest fix a client reported. A fix older than
// maxAge is stale and capture fails with ErrLocationUnavailable.
type ReportedProvider struct {
	maxAge time.Duration
	now    func() time.Time

	mu     sync.Mutex
	latest *domain.DeviceLocation
}

func NewReportedProvider(maxAge time.Duration) *ReportedProvider {
	return &ReportedProvider{maxAge: maxAge, now: time.Now}
}

// Report records a client fix. An unset source is taken as a device reading.
func (p *ReportedProvider) Report(fix domain.DeviceLocation) error {
	if !fix.Coordinates().Valid() {
		return &domain.ValidationError{Fields: []string{"coordinates"}}
	}
	if fix.Source == "" {
		fix.Source = domain.SourceGPS
	}
	if fix.CapturedAt.IsZero() {
		fix.CapturedAt = p.now().UTC()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = &fix
	return nil
}

func (p *ReportedProvider) CaptureCurrentLocation(ctx context.Context) (*domain.DeviceLocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.latest == nil {
		return nil, domain.ErrLocationUnavailable
	}
	if p.maxAge > 0 && p.now().Sub(p.latest.CapturedAt) > p.maxAge {
		return nil, fmt.Errorf("%w: last report is older than %s", domain.ErrLocationUnavailable, p.maxAge)
	}
	fix := *p.latest
	return &fix, nil
}
