package common

import "fmt"

// TradeFill is one side of an executed Trade.
type TradeFill struct {
	OrderId  OrderId
	Price    Price
	Quantity Quantity
}

// Trade records a single execution between a resting/taking bid and a
// resting/taking ask. Both sides' prices are recorded as observed by the
// matching loop; deriving a single execution price, if a caller wants one,
// is left to a layer above the core.
type Trade struct {
	BidFill TradeFill
	AskFill TradeFill
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade: bid=%s@%d ask=%s@%d qty=%d",
		t.BidFill.OrderId, t.BidFill.Price,
		t.AskFill.OrderId, t.AskFill.Price,
		t.BidFill.Quantity,
	)
}
