package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/listing/store"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) NotifySellerContacted(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

type MockSynchronizer struct{ mock.Mock }

func (m *MockSynchronizer) Sync(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

type MockLocationProvider struct{ mock.Mock }

func (m *MockLocationProvider) CaptureCurrentLocation(ctx context.Context) (*domain.DeviceLocation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeviceLocation), args.Error(1)
}

type MockPhotoStorage struct{ mock.Mock }

func (m *MockPhotoStorage) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	args := m.Called(ctx, fileName, data)
	return args.String(0), args.Error(1)
}

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBackend() *memBackend { return &memBackend{data: map[string][]byte{}} }

func (b *memBackend) Name() string { return "mem" }

func (b *memBackend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data[key], nil
}

func (b *memBackend) Save(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBackend) Close() error { return nil }

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestStore(opts ...store.Option) *store.Store {
	opts = append([]store.Option{store.WithClock(func() time.Time { return fixedNow })}, opts...)
	return store.New(context.Background(), newMemBackend(), logger.NewNop(), opts...)
}
