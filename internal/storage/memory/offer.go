// Package memory provides process-lifetime stores for offers and segment
// assignments. Each store guards its map with a single RWMutex; every
// operation is a constant-time key lookup or write.
package memory

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/cart-offers/internal/domain/offer"
)

var _ offer.OfferRepository = (*OfferStore)(nil)

type offerKey struct {
	restaurantID int64
	segment      offer.Segment
}

// OfferStore holds offers keyed by (restaurant, segment). The last write for
// a key wins.
type OfferStore struct {
	mu     sync.RWMutex
	offers map[offerKey]offer.Offer
}

// NewOfferStore returns an empty OfferStore.
func NewOfferStore() *OfferStore {
	return &OfferStore{offers: make(map[offerKey]offer.Offer)}
}

// SetOffer writes the offer for each of the given segments. Input is fully
// validated before the lock is taken, so a failed call writes nothing.
func (s *OfferStore) SetOffer(restaurantID int64, t offer.OfferType, value decimal.Decimal, segments []offer.Segment) error {
	if len(segments) == 0 {
		return &offer.ValidationError{Field: "customer_segment", Reason: "must not be empty"}
	}
	o := offer.Offer{Type: t, Value: value}
	if err := o.Validate(); err != nil {
		return err
	}
	for _, seg := range segments {
		if !seg.Valid() {
			return &offer.ValidationError{
				Field:  "customer_segment",
				Reason: "invalid segment " + string(seg) + ", must be one of [p1 p2 p3]",
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seg := range segments {
		s.offers[offerKey{restaurantID: restaurantID, segment: seg}] = o
	}
	return nil
}

// GetOffer returns the offer for the restaurant and segment. A missing
// restaurant or segment is reported as ok == false, not as an error.
func (s *OfferStore) GetOffer(restaurantID int64, segment offer.Segment) (offer.Offer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[offerKey{restaurantID: restaurantID, segment: segment}]
	return o, ok
}

// Len returns the number of stored (restaurant, segment) entries.
func (s *OfferStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offers)
}
