// Package book holds the price-indexed, arrival-ordered storage the
// matching engine mutates: price levels, the two book sides, and the
// identity index tying an OrderId back to its storage location.
package book

import (
	"container/list"

	"orderengine/internal/common"
)

// PriceLevel is the ordered sequence of live orders resting at one price on
// one side. Orders appear in strict arrival order; an empty level is never
// retained by its owning Side.
//
// Orders is an intrusive doubly-linked list rather than a slice: cancelling
// an order from the middle of a busy level must not shift, and thereby
// invalidate the locators of, every order behind it.
type PriceLevel struct {
	Price  common.Price
	Orders *list.List // of *common.Order
}

func newPriceLevel(price common.Price) *PriceLevel {
	return &PriceLevel{Price: price, Orders: list.New()}
}

// Front returns the earliest-arrived live order at this level, if any.
func (l *PriceLevel) Front() (*common.Order, bool) {
	elem := l.Orders.Front()
	if elem == nil {
		return nil, false
	}
	return elem.Value.(*common.Order), true
}

// TotalQuantity sums the remaining quantity of every live order at this
// level, for depth reporting. It does not mutate any order.
func (l *PriceLevel) TotalQuantity() common.Quantity {
	var total common.Quantity
	for e := l.Orders.Front(); e != nil; e = e.Next() {
		total += e.Value.(*common.Order).RemainingQuantity
	}
	return total
}

func (l *PriceLevel) empty() bool {
	return l.Orders.Len() == 0
}
