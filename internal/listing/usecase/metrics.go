package usecase

// Metrics receives business events. *metrics.MetricsManager implements it.
type Metrics interface {
	ListingPosted()
	ListingEdited()
	ListingDeleted()
	SellerContacted()
	ListingsExpired(n int)
	ListingSynced()
	SyncFailed()
}

type nopMetrics struct{}

func (nopMetrics) ListingPosted()      {}
func (nopMetrics) ListingEdited()      {}
func (nopMetrics) ListingDeleted()     {}
func (nopMetrics) SellerContacted()    {}
func (nopMetrics) ListingsExpired(int) {}
func (nopMetrics) ListingSynced()      {}
func (nopMetrics) SyncFailed()         {}
