package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

type FavoriteUsecase struct {
	repo     domain.FavoriteRepository
	listings domain.ListingRepository
	logger   *logger.Logger
}

func NewFavoriteUsecase(repo domain.FavoriteRepository, listings domain.ListingRepository, log *logger.Logger) *FavoriteUsecase {
	return &FavoriteUsecase{
		repo:     repo,
		listings: listings,
		logger:   log.Named("favorite_usecase"),
	}
}

func (uc *FavoriteUsecase) AddFavorite(ctx context.Context, listingID string) error {
	uc.logger.Debug("FavoriteUsecase.AddFavorite: adding favorite", zap.String("listing_id", listingID))
	if err := uc.repo.AddFavorite(ctx, listingID); err != nil {
		uc.logger.Warn("FavoriteUsecase.AddFavorite: failed to add favorite", zap.String("listing_id", listingID), zap.Error(err))
		return err
	}
	return nil
}

// RemoveFavorite requires the listing to exist; unmarking an existing listing
// that was never marked succeeds.
func (uc *FavoriteUsecase) RemoveFavorite(ctx context.Context, listingID string) error {
	uc.logger.Debug("FavoriteUsecase.RemoveFavorite: removing favorite", zap.String("listing_id", listingID))
	if _, err := uc.listings.Get(ctx, listingID); err != nil {
		return err
	}
	if err := uc.repo.RemoveFavorite(ctx, listingID); err != nil {
		uc.logger.Warn("FavoriteUsecase.RemoveFavorite: failed to remove favorite", zap.String("listing_id", listingID), zap.Error(err))
		return err
	}
	return nil
}

// GetFavorites returns the marked listings in the order they were marked.
func (uc *FavoriteUsecase) GetFavorites(ctx context.Context) ([]*domain.Listing, error) {
	ids, err := uc.repo.Favorites(ctx)
	if err != nil {
		uc.logger.Error("FavoriteUsecase.GetFavorites: failed to fetch favorites", zap.Error(err))
		return nil, err
	}

	out := make([]*domain.Listing, 0, len(ids))
	for _, id := range ids {
		l, err := uc.listings.Get(ctx, id)
		if errors.Is(err, domain.ErrListingNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
