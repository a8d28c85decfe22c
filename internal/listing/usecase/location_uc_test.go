package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

func TestLocationTracker_CaptureSuccess(t *testing.T) {
	provider := new(MockLocationProvider)
	provider.On("CaptureCurrentLocation", mock.Anything).
		Return(&domain.DeviceLocation{Latitude: -0.09, Longitude: 34.77, Accuracy: 8}, nil).Once()
	tracker := NewLocationTracker(provider, logger.NewNop())
	tracker.now = func() time.Time { return fixedNow }

	fix, err := tracker.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceGPS, fix.Source)
	assert.Equal(t, fixedNow, fix.CapturedAt)
	assert.Equal(t, fix, tracker.Current())
	assert.Equal(t, fix, tracker.LastKnown())

	fix.Latitude = 50
	assert.Equal(t, -0.09, tracker.Current().Latitude, "returned fix is a copy")
}

func TestLocationTracker_FallsBackToLastKnown(t *testing.T) {
	provider := new(MockLocationProvider)
	provider.On("CaptureCurrentLocation", mock.Anything).
		Return(&domain.DeviceLocation{Latitude: 1, Longitude: 2, Source: domain.SourceGPS}, nil).Once()
	provider.On("CaptureCurrentLocation", mock.Anything).
		Return(nil, errors.New("gps timeout")).Once()
	tracker := NewLocationTracker(provider, logger.NewNop())

	_, err := tracker.Capture(context.Background())
	require.NoError(t, err)

	fix, err := tracker.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLastKnown, fix.Source)
	assert.Equal(t, 1.0, fix.Latitude)
	assert.Equal(t, domain.SourceLastKnown, tracker.Current().Source)
	assert.Equal(t, domain.SourceGPS, tracker.LastKnown().Source)
}

func TestLocationTracker_Unavailable(t *testing.T) {
	provider := new(MockLocationProvider)
	provider.On("CaptureCurrentLocation", mock.Anything).Return(nil, errors.New("permission denied"))
	tracker := NewLocationTracker(provider, logger.NewNop())

	_, err := tracker.Capture(context.Background())
	assert.ErrorIs(t, err, domain.ErrLocationUnavailable)
	assert.Nil(t, tracker.Current())
	assert.Nil(t, tracker.LastKnown())
}

func TestLocationTracker_CancelledCaptureWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := new(MockLocationProvider)
	provider.On("CaptureCurrentLocation", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(&domain.DeviceLocation{Latitude: 3, Longitude: 3}, nil)
	tracker := NewLocationTracker(provider, logger.NewNop())

	_, err := tracker.Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, tracker.Current())
	assert.Nil(t, tracker.LastKnown())
}

func TestLocationTracker_RejectsOutOfRangeFix(t *testing.T) {
	provider := new(MockLocationProvider)
	provider.On("CaptureCurrentLocation", mock.Anything).
		Return(&domain.DeviceLocation{Latitude: 120, Longitude: 0}, nil)
	tracker := NewLocationTracker(provider, logger.NewNop())

	_, err := tracker.Capture(context.Background())
	assert.ErrorIs(t, err, domain.ErrLocationUnavailable)
	assert.Nil(t, tracker.Current())
}

func TestLocationTracker_OutOfRangeFixFallsBackToLastKnown(t *testing.T) {
	provider := new(MockLocationProvider)
	provider.On("CaptureCurrentLocation", mock.Anything).
		Return(&domain.DeviceLocation{Latitude: 1, Longitude: 2}, nil).Once()
	provider.On("CaptureCurrentLocation", mock.Anything).
		Return(&domain.DeviceLocation{Latitude: 999, Longitude: 2}, nil).Once()
	tracker := NewLocationTracker(provider, logger.NewNop())

	_, err := tracker.Capture(context.Background())
	require.NoError(t, err)

	fix, err := tracker.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, fix.Latitude)
	assert.Equal(t, domain.SourceLastKnown, fix.Source)
	assert.Equal(t, domain.SourceLastKnown, tracker.Current().Source)
	assert.Equal(t, domain.SourceGPS, tracker.LastKnown().Source)
	provider.AssertExpectations(t)
}
