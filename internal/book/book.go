package book

import (
	"container/list"

	"orderengine/internal/common"
)

// locator is the identity index's entry: everything needed to remove a live
// order in O(1), regardless of where it sits within its level.
type locator struct {
	side  *Side
	level *PriceLevel
	elem  *list.Element
}

// Book is the book-sides-plus-identity-index component: two price-indexed
// Sides and a map from OrderId to the locator of that order's storage.
//
// Book owns every live Order exclusively. A given Order is reachable from
// exactly one Side's PriceLevel and exactly one index entry; Insert and
// Remove are the only ways either view changes.
type Book struct {
	Bids  *Side
	Asks  *Side
	index map[common.OrderId]locator
}

// New constructs an empty Book.
func New() *Book {
	return &Book{
		Bids:  NewBidSide(),
		Asks:  NewAskSide(),
		index: make(map[common.OrderId]locator),
	}
}

// Contains reports whether id names a currently live order.
func (b *Book) Contains(id common.OrderId) bool {
	_, ok := b.index[id]
	return ok
}

// Peek returns the live order named by id without removing it.
func (b *Book) Peek(id common.OrderId) (*common.Order, bool) {
	loc, ok := b.index[id]
	if !ok {
		return nil, false
	}
	return loc.elem.Value.(*common.Order), true
}

func (b *Book) sideFor(side common.Side) *Side {
	if side == common.Buy {
		return b.Bids
	}
	return b.Asks
}

// Insert appends order to the tail of its price level, creating the level
// if it does not yet exist, and records its locator in the identity index.
// The caller must have already checked Contains(order.OrderId) == false.
func (b *Book) Insert(order *common.Order) {
	side := b.sideFor(order.Side)
	level := side.GetOrCreate(order.Price)
	elem := level.Orders.PushBack(order)
	b.index[order.OrderId] = locator{side: side, level: level, elem: elem}
}

// Remove deletes the order named by id from its price level and the
// identity index, dropping the level if it becomes empty. It is a no-op,
// returning (nil, false), if id is not live.
func (b *Book) Remove(id common.OrderId) (*common.Order, bool) {
	loc, ok := b.index[id]
	if !ok {
		return nil, false
	}
	order := loc.elem.Value.(*common.Order)
	loc.level.Orders.Remove(loc.elem)
	delete(b.index, id)
	loc.side.dropIfEmpty(loc.level)
	return order, true
}

// PeekBestBid returns the earliest-arrived order at the best bid price,
// without removing it.
func (b *Book) PeekBestBid() (*common.Order, bool) {
	return peekBest(b.Bids)
}

// PeekBestAsk returns the earliest-arrived order at the best ask price,
// without removing it.
func (b *Book) PeekBestAsk() (*common.Order, bool) {
	return peekBest(b.Asks)
}

func peekBest(side *Side) (*common.Order, bool) {
	lvl, ok := side.Best()
	if !ok {
		return nil, false
	}
	return lvl.Front()
}

// BestBidPrice returns the highest resting buy price, if any.
func (b *Book) BestBidPrice() (common.Price, bool) {
	return b.Bids.BestPrice()
}

// BestAskPrice returns the lowest resting sell price, if any.
func (b *Book) BestAskPrice() (common.Price, bool) {
	return b.Asks.BestPrice()
}

// Size returns the number of live orders, the cardinality of the identity
// index.
func (b *Book) Size() int {
	return len(b.index)
}

// DepthSnapshot aggregates remaining quantity per price level on each side,
// bids highest-first and asks lowest-first. It mutates nothing.
func (b *Book) DepthSnapshot() (bids, asks []common.LevelInfo) {
	bids = levelInfos(b.Bids)
	asks = levelInfos(b.Asks)
	return bids, asks
}

func levelInfos(side *Side) []common.LevelInfo {
	levels := side.Levels()
	infos := make([]common.LevelInfo, 0, len(levels))
	for _, lvl := range levels {
		infos = append(infos, common.LevelInfo{Price: lvl.Price, Quantity: lvl.TotalQuantity()})
	}
	return infos
}
