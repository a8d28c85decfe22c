package domain

import (
	"context"
	"time"
)

// Backend is a flat key-value store holding serialized collections.
// Load returns (nil, nil) when the key has never been written.
type Backend interface {
	Name() string
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

type ListingRepository interface {
	Add(ctx context.Context, listing *Listing) (*Listing, error)
	Update(ctx context.Context, listing *Listing) (*Listing, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Listing, error)
	GetAll(ctx context.Context) ([]*Listing, error)
	Mutate(ctx context.Context, id string, fn func(*Listing) error) (*Listing, error)
	Expire(ctx context.Context, cutoff time.Time) ([]string, error)
	Status() StoreStatus
}

type FavoriteRepository interface {
	AddFavorite(ctx context.Context, listingID string) error
	RemoveFavorite(ctx context.Context, listingID string) error
	Favorites(ctx context.Context) ([]string, error)
}

// LocationProvider supplies a best-effort device fix. It may fail with
// ErrLocationUnavailable.
type LocationProvider interface {
	CaptureCurrentLocation(ctx context.Context) (*DeviceLocation, error)
}

// Synchronizer pushes a listing to the outside world.
type Synchronizer interface {
	Sync(ctx context.Context, listing *Listing) error
}

type PhotoStorage interface {
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
}

type Notifier interface {
	NotifySellerContacted(ctx context.Context, listing *Listing) error
}
