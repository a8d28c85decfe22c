package store

import (
	"context"
	"slices"

	"github.com/sinyoro/market-service/internal/listing/domain"
)

// AddFavorite marks a listing as a favorite. Marking twice is a no-op.
func (s *Store) AddFavorite(ctx context.Context, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(listingID) < 0 {
		return domain.ErrListingNotFound
	}
	if slices.Contains(s.favorites, listingID) {
		return nil
	}
	s.favorites = append(s.favorites, listingID)
	s.persist(ctx, FavoritesKey, s.favorites)
	return nil
}

// RemoveFavorite clears the mark. Removing an unmarked listing is a no-op.
func (s *Store) RemoveFavorite(ctx context.Context, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dropFavorite(listingID) {
		s.persist(ctx, FavoritesKey, s.favorites)
	}
	return nil
}

func (s *Store) Favorites(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.favorites), nil
}

// dropFavorite must be called with mu held.
func (s *Store) dropFavorite(listingID string) bool {
	idx := slices.Index(s.favorites, listingID)
	if idx < 0 {
		return false
	}
	s.favorites = slices.Delete(s.favorites, idx, idx+1)
	return true
}
