// Package engine implements the matching engine: order admission, the
// price-time priority matching loop, cancellation, modification, and depth
// aggregation, on top of the storage primitives in internal/book.
//
// OrderBook is a synchronous state machine. None of its methods block, wait,
// or perform I/O; it is the caller's responsibility to serialize calls
// across goroutines (see internal/net, which funnels every call through a
// single session-handler goroutine).
package engine

import (
	"orderengine/internal/book"
	"orderengine/internal/common"
)

// OrderBook is the matching engine for a single symbol.
type OrderBook struct {
	book *book.Book
}

// New constructs an empty OrderBook.
func New() *OrderBook {
	return &OrderBook{book: book.New()}
}

// Add admits a new order. Duplicate order ids are rejected with
// ErrDuplicateOrder and leave the book unchanged. A Market order is matched
// immediately and never rests. An ImmediateOrCancel order that cannot cross
// at all is rejected with ErrUnfillableIOC and leaves the book unchanged;
// otherwise it rests only for the duration of the matching loop below and
// any residual is cancelled before this call returns.
//
// A successful call always returns a non-nil (possibly empty) trade slice
// and a nil error, whether or not any trade was produced.
func (ob *OrderBook) Add(order common.Order) ([]common.Trade, error) {
	if ob.book.Contains(order.OrderId) {
		return nil, ErrDuplicateOrder
	}

	if order.Type == common.Market {
		return ob.matchMarket(order), nil
	}

	if order.Type == common.ImmediateOrCancel && !ob.canCross(order.Side, order.Price) {
		return nil, ErrUnfillableIOC
	}

	resting := order
	ob.book.Insert(&resting)

	trades := ob.match()
	ob.cancelUnfilledIOCAtTop()
	return trades, nil
}

// canCross reports whether an incoming limit order at (side, price) would
// cross the opposite side at all, i.e. whether admitting it could possibly
// produce a trade. A Buy crosses iff the ask side is non-empty and
// price >= best_ask; a Sell crosses iff the bid side is non-empty and
// price <= best_bid.
func (ob *OrderBook) canCross(side common.Side, price common.Price) bool {
	if side == common.Buy {
		bestAsk, ok := ob.book.BestAskPrice()
		return ok && price >= bestAsk
	}
	bestBid, ok := ob.book.BestBidPrice()
	return ok && price <= bestBid
}

// match runs the cross-matching loop: while both sides are non-empty and
// the best bid is at or above the best ask, it trades the front orders of
// each side's best level against one another, removing any order that fills
// completely (and any level that empties as a result), until the book is
// uncrossed or one side runs out of orders.
func (ob *OrderBook) match() []common.Trade {
	trades := make([]common.Trade, 0)

	for {
		bid, bidOK := ob.book.PeekBestBid()
		ask, askOK := ob.book.PeekBestAsk()
		if !bidOK || !askOK || bid.Price < ask.Price {
			break
		}

		qty := min(bid.RemainingQuantity, ask.RemainingQuantity)

		trades = append(trades, common.Trade{
			BidFill: common.TradeFill{OrderId: bid.OrderId, Price: bid.Price, Quantity: qty},
			AskFill: common.TradeFill{OrderId: ask.OrderId, Price: ask.Price, Quantity: qty},
		})

		bid.Fill(qty)
		ask.Fill(qty)

		if bid.IsFilled() {
			ob.book.Remove(bid.OrderId)
		}
		if ask.IsFilled() {
			ob.book.Remove(ask.OrderId)
		}
	}

	return trades
}

// matchMarket walks the opposite side of incoming from best price outward,
// trading at each resting order's price, until incoming fully fills or the
// opposite side empties. incoming is never inserted into the book; any
// quantity left over when the opposite side runs dry is discarded.
func (ob *OrderBook) matchMarket(incoming common.Order) []common.Trade {
	trades := make([]common.Trade, 0)

	peekOpposite := ob.book.PeekBestAsk
	if incoming.Side == common.Sell {
		peekOpposite = ob.book.PeekBestBid
	}

	for incoming.RemainingQuantity > 0 {
		resting, ok := peekOpposite()
		if !ok {
			break
		}

		qty := min(incoming.RemainingQuantity, resting.RemainingQuantity)
		incoming.Fill(qty)
		resting.Fill(qty)

		trades = append(trades, marketTrade(incoming.Side, incoming.OrderId, resting, qty))

		if resting.IsFilled() {
			ob.book.Remove(resting.OrderId)
		}
	}

	return trades
}

// marketTrade builds the Trade record for one step of a market sweep. Both
// fills use the resting order's price, since the incoming Market order has
// no price of its own.
func marketTrade(incomingSide common.Side, incomingId common.OrderId, resting *common.Order, qty common.Quantity) common.Trade {
	incomingFill := common.TradeFill{OrderId: incomingId, Price: resting.Price, Quantity: qty}
	restingFill := common.TradeFill{OrderId: resting.OrderId, Price: resting.Price, Quantity: qty}
	if incomingSide == common.Buy {
		return common.Trade{BidFill: incomingFill, AskFill: restingFill}
	}
	return common.Trade{BidFill: restingFill, AskFill: incomingFill}
}

// cancelUnfilledIOCAtTop cancels the top-of-book order on either side if it
// is an ImmediateOrCancel order that still carries remaining quantity. The
// only order this can ever apply to is the one Add just inserted: every
// other call already cleans up its own IOC residual before returning, so no
// resting IOC order can survive from a prior call.
func (ob *OrderBook) cancelUnfilledIOCAtTop() {
	if bid, ok := ob.book.PeekBestBid(); ok && bid.Type == common.ImmediateOrCancel && bid.RemainingQuantity > 0 {
		ob.book.Remove(bid.OrderId)
	}
	if ask, ok := ob.book.PeekBestAsk(); ok && ask.Type == common.ImmediateOrCancel && ask.RemainingQuantity > 0 {
		ob.book.Remove(ask.OrderId)
	}
}

// Cancel removes the order named by id from the book. Unknown ids are a
// no-op, not an error.
func (ob *OrderBook) Cancel(id common.OrderId) {
	ob.book.Remove(id)
}

// Modify replaces the side, price, and quantity of a live order, preserving
// its OrderType. This is implemented as cancel-then-readmit, so the
// modified order loses its time priority at the new position. Unknown ids
// are rejected with ErrUnknownOrder.
func (ob *OrderBook) Modify(mod common.OrderModify) ([]common.Trade, error) {
	existing, ok := ob.book.Peek(mod.OrderId)
	if !ok {
		return nil, ErrUnknownOrder
	}
	orderType := existing.Type

	ob.book.Remove(mod.OrderId)
	return ob.Add(mod.ToOrder(orderType))
}

// DepthSnapshot aggregates remaining quantity per price level, bids in
// descending price order and asks in ascending price order. It mutates no
// orders.
func (ob *OrderBook) DepthSnapshot() (bids, asks []common.LevelInfo) {
	return ob.book.DepthSnapshot()
}

// Size returns the number of live orders in the book.
func (ob *OrderBook) Size() int {
	return ob.book.Size()
}
