package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/listing/domain"
	"github.com/sinyoro/market-service/internal/listing/ranker"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

const DefaultRetention = 30 * 24 * time.Hour

var tracer = otel.Tracer("github.com/sinyoro/market-service/internal/listing/usecase")

// ListingInput carries the user-editable fields of a listing.
type ListingInput struct {
	Title         string               `json:"title"`
	Category      domain.Category      `json:"category"`
	Description   string               `json:"description"`
	Price         string               `json:"price"`
	SellerName    string               `json:"sellerName"`
	ContactMethod domain.ContactMethod `json:"contactMethod"`
	ContactDetail string               `json:"contactDetail"`
	ImageData     []byte               `json:"imageData"`

	// AttachCurrentLocation tags the listing with the tracker's current fix
	// when no explicit location is given.
	AttachCurrentLocation bool `json:"attachCurrentLocation"`
}

func (in *ListingInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = domain.Category(strings.TrimSpace(string(in.Category)))
	in.Description = strings.TrimSpace(in.Description)
	in.Price = strings.TrimSpace(in.Price)
	in.SellerName = strings.TrimSpace(in.SellerName)
	in.ContactDetail = strings.TrimSpace(in.ContactDetail)
	if in.ContactMethod == "" {
		in.ContactMethod = domain.ContactPhone
	}
}

func validate(in *ListingInput, loc *domain.Location) error {
	ve := &domain.ValidationError{}
	if in.Title == "" {
		ve.Add("title")
	}
	if !in.Category.Valid() {
		ve.Add("category")
	}
	if in.SellerName == "" {
		ve.Add("sellerName")
	}
	if !in.ContactMethod.Valid() {
		ve.Add("contactMethod")
	}
	if loc.HasCoordinates() && !loc.Coordinates.Valid() {
		ve.Add("location.coordinates")
	}
	return ve.Err()
}

type Option func(*ListingUsecase)

func WithNotifier(n domain.Notifier) Option {
	return func(uc *ListingUsecase) { uc.notifier = n }
}

func WithSynchronizer(s domain.Synchronizer) Option {
	return func(uc *ListingUsecase) { uc.sync = s }
}

func WithMetrics(m Metrics) Option {
	return func(uc *ListingUsecase) { uc.metrics = m }
}

// WithRetention sets how long listings live. Zero or negative disables expiry.
func WithRetention(d time.Duration) Option {
	return func(uc *ListingUsecase) { uc.retention = d }
}

func WithClock(now func() time.Time) Option {
	return func(uc *ListingUsecase) { uc.now = now }
}

type ListingUsecase struct {
	repo      domain.ListingRepository
	favorites domain.FavoriteRepository
	tracker   *LocationTracker
	notifier  domain.Notifier
	sync      domain.Synchronizer
	metrics   Metrics
	logger    *logger.Logger
	retention time.Duration
	now       func() time.Time
}

// NewListingUsecase wires the listing flows. tracker may be nil, in which case
// AttachCurrentLocation has no effect.
func NewListingUsecase(repo domain.ListingRepository, favorites domain.FavoriteRepository, tracker *LocationTracker, log *logger.Logger, opts ...Option) *ListingUsecase {
	uc := &ListingUsecase{
		repo:      repo,
		favorites: favorites,
		tracker:   tracker,
		metrics:   nopMetrics{},
		logger:    log.Named("listing_usecase"),
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// PostListing validates the input and stores a new listing. An explicit
// non-empty loc wins over the tracker's current fix. Nothing is stored when
// validation fails.
func (uc *ListingUsecase) PostListing(ctx context.Context, in ListingInput, loc *domain.Location) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.PostListing")
	defer span.End()

	in.normalize()
	if err := validate(&in, loc); err != nil {
		uc.logger.Info("ListingUsecase.PostListing: rejected invalid listing", zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	listing := &domain.Listing{
		Title:         in.Title,
		Category:      in.Category,
		Description:   in.Description,
		Price:         in.Price,
		SellerName:    in.SellerName,
		ContactMethod: in.ContactMethod,
		ContactDetail: in.ContactDetail,
		ImageData:     in.ImageData,
		Location:      uc.resolveLocation(loc, in.AttachCurrentLocation),
	}

	created, err := uc.repo.Add(ctx, listing)
	if err != nil {
		uc.logger.Error("ListingUsecase.PostListing: failed to store listing", zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("post listing: %w", err)
	}

	uc.metrics.ListingPosted()
	span.SetAttributes(attribute.String("listing.id", created.ID))
	uc.logger.Info("ListingUsecase.PostListing: listing posted",
		zap.String("listing_id", created.ID),
		zap.String("category", string(created.Category)),
		zap.Bool("located", created.Location.HasCoordinates()),
		zap.Bool("posted_offline", created.PostedOffline))
	return created, nil
}

// resolveLocation never waits on a capture; it only reads what the tracker
// already holds.
func (uc *ListingUsecase) resolveLocation(loc *domain.Location, attachCurrent bool) *domain.Location {
	if !loc.IsEmpty() {
		out := *loc
		if loc.Coordinates != nil {
			coords := *loc.Coordinates
			out.Coordinates = &coords
			if out.Source == "" {
				out.Source = domain.SourceManual
			}
		}
		return &out
	}
	if attachCurrent && uc.tracker != nil {
		return uc.tracker.Current().AsLocation()
	}
	return nil
}

// EditListing overwrites the editable fields. A nil loc keeps the current
// location; an empty one clears it. The listing becomes pending sync again.
func (uc *ListingUsecase) EditListing(ctx context.Context, id string, in ListingInput, loc *domain.Location) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.EditListing", spanID(id))
	defer span.End()

	in.normalize()
	if err := validate(&in, loc); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	updated, err := uc.repo.Mutate(ctx, id, func(l *domain.Listing) error {
		l.Title = in.Title
		l.Category = in.Category
		l.Description = in.Description
		l.Price = in.Price
		l.SellerName = in.SellerName
		l.ContactMethod = in.ContactMethod
		l.ContactDetail = in.ContactDetail
		if in.ImageData != nil {
			l.ImageData = in.ImageData
			l.ImageURL = ""
		}
		if loc != nil {
			l.Location = uc.resolveLocation(loc, false)
		}
		l.Synced = false
		l.LastModified = uc.now().UTC()
		return nil
	})
	if err != nil {
		uc.logFailure("ListingUsecase.EditListing", id, err)
		return nil, err
	}

	uc.metrics.ListingEdited()
	uc.logger.Info("ListingUsecase.EditListing: listing updated", zap.String("listing_id", id))
	return updated, nil
}

func (uc *ListingUsecase) DeleteListing(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "ListingUsecase.DeleteListing", spanID(id))
	defer span.End()

	if err := uc.repo.Delete(ctx, id); err != nil {
		uc.logFailure("ListingUsecase.DeleteListing", id, err)
		return err
	}
	uc.metrics.ListingDeleted()
	uc.logger.Info("ListingUsecase.DeleteListing: listing deleted", zap.String("listing_id", id))
	return nil
}

func (uc *ListingUsecase) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	listing, err := uc.repo.Get(ctx, id)
	if err != nil {
		uc.logFailure("ListingUsecase.GetListing", id, err)
		return nil, err
	}
	return listing, nil
}

// ContactSeller counts a contact action. Email sellers are also notified; a
// failed notification is logged and does not fail the action.
func (uc *ListingUsecase) ContactSeller(ctx context.Context, id string) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.ContactSeller", spanID(id))
	defer span.End()

	listing, err := uc.repo.Mutate(ctx, id, func(l *domain.Listing) error {
		l.Views++
		return nil
	})
	if err != nil {
		uc.logFailure("ListingUsecase.ContactSeller", id, err)
		return nil, err
	}
	uc.metrics.SellerContacted()

	if listing.ContactMethod == domain.ContactEmail && uc.notifier != nil {
		if err := uc.notifier.NotifySellerContacted(ctx, listing); err != nil {
			span.RecordError(err)
			uc.logger.Warn("ListingUsecase.ContactSeller: seller notification failed",
				zap.String("listing_id", id), zap.Error(err))
		}
	}

	uc.logger.Info("ListingUsecase.ContactSeller: seller contacted",
		zap.String("listing_id", id), zap.Int("views", listing.Views))
	return listing, nil
}

// RankedListings filters the collection and orders it by distance from
// device. device may be nil.
func (uc *ListingUsecase) RankedListings(ctx context.Context, device *domain.DeviceLocation, filter domain.Filter) ([]ranker.Ranked, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.RankedListings")
	defer span.End()

	all, err := uc.repo.GetAll(ctx)
	if err != nil {
		uc.logger.Error("ListingUsecase.RankedListings: failed to read listings", zap.Error(err))
		return nil, err
	}

	var favorites []string
	if filter.FavoritesOnly {
		favorites, err = uc.favorites.Favorites(ctx)
		if err != nil {
			return nil, fmt.Errorf("read favorites: %w", err)
		}
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	seller := strings.TrimSpace(filter.SellerName)
	matched := make([]*domain.Listing, 0, len(all))
	for _, l := range all {
		if filter.Category != "" && l.Category != filter.Category {
			continue
		}
		if seller != "" && !strings.EqualFold(l.SellerName, seller) {
			continue
		}
		if filter.FavoritesOnly && !slices.Contains(favorites, l.ID) {
			continue
		}
		if query != "" && !matchesQuery(l, query) {
			continue
		}
		matched = append(matched, l)
	}

	ranked := ranker.Within(ranker.Rank(device, matched), filter.MaxDistanceKm)
	span.SetAttributes(attribute.Int("listings.count", len(ranked)))
	return ranked, nil
}

func matchesQuery(l *domain.Listing, query string) bool {
	fields := []string{l.Title, l.Description, l.SellerName}
	if l.Location != nil {
		fields = append(fields, l.Location.Landmark, l.Location.AreaName)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// ExpireListings removes listings older than the retention window measured
// from now.
func (uc *ListingUsecase) ExpireListings(ctx context.Context, now time.Time) ([]string, error) {
	if uc.retention <= 0 {
		return nil, nil
	}
	ctx, span := tracer.Start(ctx, "ListingUsecase.ExpireListings")
	defer span.End()

	cutoff := now.Add(-uc.retention)
	removed, err := uc.repo.Expire(ctx, cutoff)
	if err != nil {
		uc.logger.Error("ListingUsecase.ExpireListings: sweep failed", zap.Error(err))
		return nil, err
	}
	if len(removed) > 0 {
		uc.metrics.ListingsExpired(len(removed))
		uc.logger.Info("ListingUsecase.ExpireListings: expired listings removed",
			zap.Int("count", len(removed)), zap.Time("cutoff", cutoff))
	}
	return removed, nil
}

// SyncPending hands every unsynced listing to the synchronizer and marks the
// ones it accepted. Failures stay pending for the next pass.
func (uc *ListingUsecase) SyncPending(ctx context.Context) (int, error) {
	if uc.sync == nil {
		return 0, nil
	}
	ctx, span := tracer.Start(ctx, "ListingUsecase.SyncPending")
	defer span.End()

	all, err := uc.repo.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, l := range all {
		if l.Synced {
			continue
		}
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := uc.sync.Sync(ctx, l); err != nil {
			uc.metrics.SyncFailed()
			uc.logger.Warn("ListingUsecase.SyncPending: sync failed, will retry",
				zap.String("listing_id", l.ID), zap.Error(err))
			continue
		}
		_, err := uc.repo.Mutate(ctx, l.ID, func(rec *domain.Listing) error {
			// An edit that landed while syncing leaves the listing pending.
			if rec.LastModified.Equal(l.LastModified) {
				rec.Synced = true
			}
			return nil
		})
		if errors.Is(err, domain.ErrListingNotFound) {
			continue
		}
		if err != nil {
			return synced, err
		}
		uc.metrics.ListingSynced()
		synced++
	}

	if synced > 0 {
		uc.logger.Info("ListingUsecase.SyncPending: listings synced", zap.Int("count", synced))
	}
	return synced, nil
}

func (uc *ListingUsecase) Status() domain.StoreStatus {
	return uc.repo.Status()
}

func spanID(id string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("listing.id", id))
}

func (uc *ListingUsecase) logFailure(op, id string, err error) {
	if errors.Is(err, domain.ErrListingNotFound) {
		uc.logger.Warn(op+": listing not found", zap.String("listing_id", id))
		return
	}
	uc.logger.Error(op+": failed", zap.String("listing_id", id), zap.Error(err))
}
