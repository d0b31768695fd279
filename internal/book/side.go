package book

import (
	"github.com/tidwall/btree"

	"orderengine/internal/common"
)

// Side is one half of the book: a price-indexed, ordered map from price to
// PriceLevel. Its iteration order is fixed at construction time by a less
// function, so the bid side and the ask side are the same data structure
// with opposite comparators.
type Side struct {
	levels *btree.BTreeG[*PriceLevel]
}

// NewBidSide orders levels so the highest price sorts first, giving the
// book's best bid at the front of an ascending scan.
func NewBidSide() *Side {
	return &Side{levels: btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price
	})}
}

// NewAskSide orders levels so the lowest price sorts first, giving the
// book's best ask at the front of an ascending scan.
func NewAskSide() *Side {
	return &Side{levels: btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price
	})}
}

// Best returns this side's top-of-book price level: the highest bid or the
// lowest ask, depending on which comparator the side was built with.
func (s *Side) Best() (*PriceLevel, bool) {
	return s.levels.Min()
}

// BestPrice returns the price of the top-of-book level, if any.
func (s *Side) BestPrice() (common.Price, bool) {
	lvl, ok := s.levels.Min()
	if !ok {
		return 0, false
	}
	return lvl.Price, true
}

// GetOrCreate returns the level at price, creating and inserting an empty
// one if none exists yet.
func (s *Side) GetOrCreate(price common.Price) *PriceLevel {
	if lvl, ok := s.levels.Get(&PriceLevel{Price: price}); ok {
		return lvl
	}
	lvl := newPriceLevel(price)
	s.levels.Set(lvl)
	return lvl
}

// dropIfEmpty removes lvl from the side if it no longer holds any orders.
func (s *Side) dropIfEmpty(lvl *PriceLevel) {
	if lvl.empty() {
		s.levels.Delete(&PriceLevel{Price: lvl.Price})
	}
}

// Len returns the number of distinct price levels on this side.
func (s *Side) Len() int {
	return s.levels.Len()
}

// Levels returns every level on this side in the side's priority order
// (best first), for depth snapshots. It does not mutate the side.
func (s *Side) Levels() []*PriceLevel {
	out := make([]*PriceLevel, 0, s.levels.Len())
	s.levels.Scan(func(lvl *PriceLevel) bool {
		out = append(out, lvl)
		return true
	})
	return out
}
