package memory

import (
	"sync"

	"github.com/xenking/cart-offers/internal/domain/offer"
)

var _ offer.SegmentRepository = (*SegmentStore)(nil)

// SegmentStore holds the segment assigned to each user.
type SegmentStore struct {
	mu       sync.RWMutex
	segments map[int64]offer.Segment
}

// NewSegmentStore returns an empty SegmentStore.
func NewSegmentStore() *SegmentStore {
	return &SegmentStore{segments: make(map[int64]offer.Segment)}
}

// SetSegment overwrites the user's assignment.
func (s *SegmentStore) SetSegment(userID int64, segment offer.Segment) error {
	if _, err := offer.ParseSegment(string(segment)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[userID] = segment
	return nil
}

// GetSegment returns the user's segment; ok is false for unassigned users.
func (s *SegmentStore) GetSegment(userID int64) (offer.Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.segments[userID]
	return seg, ok
}

// Len returns the number of users with an assigned segment.
func (s *SegmentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}
