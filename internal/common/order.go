package common

import "fmt"

// Order is the mutable record of a single order's lifecycle state.
//
// A live Order is reachable from exactly two places: the price level it
// rests on and the identity index that maps its OrderId back to a locator.
// Both views share this one record; neither ever copies it. Fill is the only
// method that mutates it in place.
type Order struct {
	OrderId           OrderId   // externally supplied, unique across all live orders
	Side              Side      //
	Type              OrderType //
	Price             Price     // ignored for Market orders
	InitialQuantity   Quantity  // > 0
	RemainingQuantity Quantity  // 0 <= remaining <= initial
	Owner             string    // who owns this order, for reporting only
}

// NewOrder constructs an order with its remaining quantity equal to its
// initial quantity.
func NewOrder(id OrderId, side Side, orderType OrderType, price Price, quantity Quantity) Order {
	return Order{
		OrderId:           id,
		Side:              side,
		Type:              orderType,
		Price:             price,
		InitialQuantity:   quantity,
		RemainingQuantity: quantity,
	}
}

// IsFilled reports whether the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.RemainingQuantity == 0
}

// FilledQuantity returns how much of the order has already traded.
func (o *Order) FilledQuantity() Quantity {
	return o.InitialQuantity - o.RemainingQuantity
}

// Fill decrements the order's remaining quantity by qty. Filling for more
// than remains is a programming error in the matching loop above this call,
// never a recoverable condition, so it panics rather than underflow.
func (o *Order) Fill(qty Quantity) {
	if qty > o.RemainingQuantity {
		panic(fmt.Sprintf("order %s: cannot fill %d, only %d remaining", o.OrderId, qty, o.RemainingQuantity))
	}
	o.RemainingQuantity -= qty
}

func (o Order) String() string {
	return fmt.Sprintf(
		`OrderId:   %s
Side:      %v
Type:      %v
Price:     %d
Quantity:  %d (initial %d)
Owner:     %s`,
		o.OrderId,
		o.Side,
		o.Type,
		o.Price,
		o.RemainingQuantity,
		o.InitialQuantity,
		o.Owner,
	)
}
