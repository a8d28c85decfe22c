package usecase

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

type PhotoUsecase struct {
	storage  domain.PhotoStorage
	repo     domain.ListingRepository
	logger   *logger.Logger
	maxBytes int64
	now      func() time.Time
}

// NewPhotoUsecase builds the photo flow. With a nil storage photos are kept
// inline on the listing.
func NewPhotoUsecase(storage domain.PhotoStorage, repo domain.ListingRepository, maxBytes int64, log *logger.Logger) *PhotoUsecase {
	return &PhotoUsecase{
		storage:  storage,
		repo:     repo,
		logger:   log.Named("photo_usecase"),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// UploadPhoto attaches an image to a listing and returns its URL, or "" when
// the image is stored inline.
func (uc *PhotoUsecase) UploadPhoto(ctx context.Context, listingID, fileName string, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "PhotoUsecase.UploadPhoto", spanID(listingID))
	defer span.End()

	if len(data) == 0 || (uc.maxBytes > 0 && int64(len(data)) > uc.maxBytes) {
		return "", &domain.ValidationError{Fields: []string{"imageData"}}
	}
	// Check first so a missing listing never leaves an orphaned object behind.
	if _, err := uc.repo.Get(ctx, listingID); err != nil {
		return "", err
	}

	if uc.storage == nil {
		_, err := uc.repo.Mutate(ctx, listingID, func(l *domain.Listing) error {
			l.ImageData = data
			l.ImageURL = ""
			l.Synced = false
			l.LastModified = uc.now().UTC()
			return nil
		})
		return "", err
	}

	url, err := uc.storage.Upload(ctx, objectName(listingID, fileName), data)
	if err != nil {
		span.RecordError(err)
		uc.logger.Error("PhotoUsecase.UploadPhoto: upload failed", zap.String("listing_id", listingID), zap.Error(err))
		return "", fmt.Errorf("upload photo: %w", err)
	}

	_, err = uc.repo.Mutate(ctx, listingID, func(l *domain.Listing) error {
		l.ImageURL = url
		l.ImageData = nil
		l.Synced = false
		l.LastModified = uc.now().UTC()
		return nil
	})
	if err != nil {
		return "", err
	}
	uc.logger.Info("PhotoUsecase.UploadPhoto: photo uploaded", zap.String("listing_id", listingID), zap.String("url", url))
	return url, nil
}

func objectName(listingID, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "photo"
	}
	return listingID + "/" + base
}
