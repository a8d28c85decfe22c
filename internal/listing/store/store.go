// Package store keeps the listing collection in memory and writes the whole
// collection to a key-value backend after every mutation.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

const (
	ListingsKey  = "sinyoro_market_items"
	FavoritesKey = "sinyoro_favorites"

	defaultSaveTimeout = 5 * time.Second
)

// Store is the single listing collection for a session. All reads and
// read-modify-write cycles are serialized by mu, and persistence happens under
// the same lock so the backend never sees writes out of order.
type Store struct {
	mu        sync.Mutex
	backend   domain.Backend
	listings  []*domain.Listing
	favorites []string
	degraded  bool
	lastErr   error

	logger      *logger.Logger
	now         func() time.Time
	newID       func() (string, error)
	saveTimeout time.Duration
	onDegraded  func(error)
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.newID = gen }
}

func WithSaveTimeout(d time.Duration) Option {
	return func(s *Store) { s.saveTimeout = d }
}

// WithDegradedHook registers a callback fired once when the store falls back
// to memory-only mode.
func WithDegradedHook(fn func(error)) Option {
	return func(s *Store) { s.onDegraded = fn }
}

// New loads the collection from backend. A nil backend or a failed load puts
// the store in degraded mode; New itself never fails.
func New(ctx context.Context, backend domain.Backend, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		logger:      log.Named("store"),
		now:         time.Now,
		newID:       newListingID,
		saveTimeout: defaultSaveTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if backend == nil {
		s.degrade(domain.ErrPersistenceUnavailable)
		return s
	}
	if err := s.load(ctx); err != nil {
		s.degrade(err)
	}
	return s
}

func newListingID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// load must be called with mu held.
func (s *Store) load(ctx context.Context) error {
	var listings []*domain.Listing
	if err := s.loadKey(ctx, ListingsKey, &listings); err != nil {
		return err
	}
	var favorites []string
	if err := s.loadKey(ctx, FavoritesKey, &favorites); err != nil {
		return err
	}

	kept := slices.DeleteFunc(listings, func(l *domain.Listing) bool { return l == nil })
	if dropped := len(listings) - len(kept); dropped > 0 {
		s.logger.Warn("Store.load: discarding empty listing records", zap.Int("dropped", dropped))
	}
	listings = kept

	s.listings = listings
	s.favorites = favorites
	s.logger.Info("Store.load: collection loaded",
		zap.String("backend", s.backend.Name()),
		zap.Int("listings", len(listings)),
		zap.Int("favorites", len(favorites)))
	return nil
}

func (s *Store) loadKey(ctx context.Context, key string, dst any) error {
	data, err := s.backend.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s from %s: %w", key, s.backend.Name(), err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// A corrupt payload is discarded and will be overwritten by the next save.
		s.logger.Warn("Store.loadKey: discarding unreadable payload", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// degrade must be called with mu held.
func (s *Store) degrade(err error) {
	s.lastErr = err
	if s.degraded {
		return
	}
	s.degraded = true
	name := "none"
	if s.backend != nil {
		name = s.backend.Name()
	}
	s.logger.Warn("Store: persistence unavailable, continuing in memory only",
		zap.String("backend", name), zap.Error(err))
	if s.onDegraded != nil {
		s.onDegraded(err)
	}
}

// persist writes one key. It must be called with mu held. Failures degrade
// the store instead of reaching the caller.
func (s *Store) persist(ctx context.Context, key string, v any) {
	if s.degraded || s.backend == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.degrade(fmt.Errorf("marshal %s: %w", key, err))
		return
	}

	// The mutation is already applied in memory, so a cancelled request must
	// not abort the write.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()
	if err := s.backend.Save(saveCtx, key, data); err != nil {
		s.degrade(fmt.Errorf("save %s to %s: %w", key, s.backend.Name(), err))
	}
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.listings, func(l *domain.Listing) bool { return l.ID == id })
}

// Add appends a listing, assigning an id and timestamps when they are unset.
func (s *Store) Add(ctx context.Context, listing *domain.Listing) (*domain.Listing, error) {
	if listing == nil {
		return nil, domain.ErrInvalidListingData
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := listing.Clone()
	if rec.ID == "" {
		id, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("generate listing id: %w", err)
		}
		rec.ID = id
	}
	if s.indexOf(rec.ID) >= 0 {
		return nil, domain.ErrDuplicateID
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	if rec.LastModified.IsZero() {
		rec.LastModified = rec.CreatedAt
	}
	if s.degraded {
		rec.PostedOffline = true
	}

	s.listings = append(s.listings, rec)
	s.persist(ctx, ListingsKey, s.listings)
	s.logger.Debug("Store.Add: listing stored", zap.String("listing_id", rec.ID))
	return rec.Clone(), nil
}

// Update replaces the record with the same id. CreatedAt is preserved.
func (s *Store) Update(ctx context.Context, listing *domain.Listing) (*domain.Listing, error) {
	if listing == nil || listing.ID == "" {
		return nil, domain.ErrListingNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(listing.ID)
	if idx < 0 {
		return nil, domain.ErrListingNotFound
	}

	rec := listing.Clone()
	rec.CreatedAt = s.listings[idx].CreatedAt
	rec.LastModified = s.now().UTC()
	s.listings[idx] = rec
	s.persist(ctx, ListingsKey, s.listings)
	return rec.Clone(), nil
}

// Mutate applies fn to a copy of the record and stores the result. Id and
// CreatedAt cannot be changed by fn.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*domain.Listing) error) (*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, domain.ErrListingNotFound
	}

	current := s.listings[idx]
	rec := current.Clone()
	if err := fn(rec); err != nil {
		return nil, err
	}
	rec.ID = current.ID
	rec.CreatedAt = current.CreatedAt
	s.listings[idx] = rec
	s.persist(ctx, ListingsKey, s.listings)
	return rec.Clone(), nil
}

// Delete removes the listing and any favorite mark on it.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return domain.ErrListingNotFound
	}

	s.listings = slices.Delete(s.listings, idx, idx+1)
	s.persist(ctx, ListingsKey, s.listings)
	if s.dropFavorite(id) {
		s.persist(ctx, FavoritesKey, s.favorites)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, domain.ErrListingNotFound
	}
	return s.listings[idx].Clone(), nil
}

// GetAll returns copies of every listing in insertion order.
func (s *Store) GetAll(ctx context.Context) ([]*domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l.Clone())
	}
	return out, nil
}

// Expire removes listings created before cutoff and returns their ids.
func (s *Store) Expire(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	kept := s.listings[:0]
	for _, l := range s.listings {
		if l.CreatedAt.Before(cutoff) {
			removed = append(removed, l.ID)
			continue
		}
		kept = append(kept, l)
	}
	if len(removed) == 0 {
		return nil, nil
	}
	clear(s.listings[len(kept):])
	s.listings = kept
	s.persist(ctx, ListingsKey, s.listings)

	favoritesChanged := false
	for _, id := range removed {
		if s.dropFavorite(id) {
			favoritesChanged = true
		}
	}
	if favoritesChanged {
		s.persist(ctx, FavoritesKey, s.favorites)
	}
	return removed, nil
}

// Reload re-reads the collection from the backend. In degraded mode the
// in-memory collection is authoritative and Reload reports
// ErrPersistenceUnavailable.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.degraded || s.backend == nil {
		return domain.ErrPersistenceUnavailable
	}
	if err := s.load(ctx); err != nil {
		s.degrade(err)
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return nil
}

func (s *Store) Status() domain.StoreStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.StoreStatus{
		Backend:  "none",
		Degraded: s.degraded,
		Count:    len(s.listings),
	}
	if s.backend != nil {
		st.Backend = s.backend.Name()
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
