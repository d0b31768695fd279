package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderengine/internal/common"
	"orderengine/internal/engine"
)

func limit(id common.OrderId, side common.Side, price common.Price, qty common.Quantity) common.Order {
	return common.NewOrder(id, side, common.GoodTillCancel, price, qty)
}

func ioc(id common.OrderId, side common.Side, price common.Price, qty common.Quantity) common.Order {
	return common.NewOrder(id, side, common.ImmediateOrCancel, price, qty)
}

func market(id common.OrderId, side common.Side, qty common.Quantity) common.Order {
	return common.NewOrder(id, side, common.Market, 0, qty)
}

// --- Scenario 1: simple cross -----------------------------------------------

func TestAdd_SimpleCross(t *testing.T) {
	book := engine.New()

	trades, err := book.Add(limit("1", common.Buy, 100, 10))
	require.NoError(t, err)
	assert.NotNil(t, trades, "a successful Add must yield a non-nil trade slice, even when empty")
	assert.Empty(t, trades)

	trades, err = book.Add(limit("2", common.Sell, 100, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, common.Trade{
		BidFill: common.TradeFill{OrderId: "1", Price: 100, Quantity: 10},
		AskFill: common.TradeFill{OrderId: "2", Price: 100, Quantity: 10},
	}, trades[0])

	assert.Equal(t, 0, book.Size())
	bids, asks := book.DepthSnapshot()
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}

// --- Scenario 2: price-time priority -----------------------------------------

func TestAdd_PriceTimePriority(t *testing.T) {
	book := engine.New()

	_, err := book.Add(limit("1", common.Buy, 100, 5))
	require.NoError(t, err)
	_, err = book.Add(limit("2", common.Buy, 100, 5))
	require.NoError(t, err)

	trades, err := book.Add(limit("3", common.Sell, 100, 7))
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, common.OrderId("1"), trades[0].BidFill.OrderId)
	assert.Equal(t, common.Quantity(5), trades[0].BidFill.Quantity)
	assert.Equal(t, common.OrderId("2"), trades[1].BidFill.OrderId)
	assert.Equal(t, common.Quantity(2), trades[1].BidFill.Quantity)

	assert.Equal(t, 1, book.Size())
	bids, _ := book.DepthSnapshot()
	require.Len(t, bids, 1)
	assert.Equal(t, common.LevelInfo{Price: 100, Quantity: 3}, bids[0])
}

// --- Scenario 3: IOC not crossable -------------------------------------------

func TestAdd_IOCNotCrossable(t *testing.T) {
	book := engine.New()

	trades, err := book.Add(ioc("1", common.Buy, 100, 4))
	assert.ErrorIs(t, err, engine.ErrUnfillableIOC)
	assert.Nil(t, trades)

	assert.Equal(t, 0, book.Size())
	bids, asks := book.DepthSnapshot()
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}

// --- Scenario 4: IOC partial fill --------------------------------------------

func TestAdd_IOCPartialFill(t *testing.T) {
	book := engine.New()

	_, err := book.Add(limit("1", common.Sell, 101, 3))
	require.NoError(t, err)

	trades, err := book.Add(ioc("2", common.Buy, 101, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, common.Trade{
		BidFill: common.TradeFill{OrderId: "2", Price: 101, Quantity: 3},
		AskFill: common.TradeFill{OrderId: "1", Price: 101, Quantity: 3},
	}, trades[0])

	assert.Equal(t, 0, book.Size())
}

// --- Scenario 5: market sweep -------------------------------------------------

func TestAdd_MarketSweep(t *testing.T) {
	book := engine.New()

	_, err := book.Add(limit("1", common.Sell, 101, 4))
	require.NoError(t, err)
	_, err = book.Add(limit("2", common.Sell, 102, 5))
	require.NoError(t, err)

	trades, err := book.Add(market("3", common.Buy, 7))
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, common.Trade{
		BidFill: common.TradeFill{OrderId: "3", Price: 101, Quantity: 4},
		AskFill: common.TradeFill{OrderId: "1", Price: 101, Quantity: 4},
	}, trades[0])
	assert.Equal(t, common.Trade{
		BidFill: common.TradeFill{OrderId: "3", Price: 102, Quantity: 3},
		AskFill: common.TradeFill{OrderId: "2", Price: 102, Quantity: 3},
	}, trades[1])

	_, asks := book.DepthSnapshot()
	require.Len(t, asks, 1)
	assert.Equal(t, common.LevelInfo{Price: 102, Quantity: 2}, asks[0])
}

func TestAdd_MarketSweep_EmptyOppositeSide(t *testing.T) {
	book := engine.New()

	trades, err := book.Add(market("1", common.Buy, 7))
	require.NoError(t, err)
	assert.NotNil(t, trades, "a successful Add must yield a non-nil trade slice, even when empty")
	assert.Empty(t, trades)
	assert.Equal(t, 0, book.Size())
}

// --- Scenario 6: modify loses priority ---------------------------------------

func TestModify_LosesTimePriority(t *testing.T) {
	book := engine.New()

	_, err := book.Add(limit("1", common.Buy, 100, 5))
	require.NoError(t, err)
	_, err = book.Add(limit("2", common.Buy, 100, 5))
	require.NoError(t, err)

	_, err = book.Modify(common.OrderModify{OrderId: "1", Side: common.Buy, Price: 100, Quantity: 5})
	require.NoError(t, err)

	trades, err := book.Add(limit("3", common.Sell, 100, 5))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, common.OrderId("2"), trades[0].BidFill.OrderId)
}

func TestModify_UnknownOrder(t *testing.T) {
	book := engine.New()

	trades, err := book.Modify(common.OrderModify{OrderId: "nope", Side: common.Buy, Price: 1, Quantity: 1})
	assert.ErrorIs(t, err, engine.ErrUnknownOrder)
	assert.Nil(t, trades)
}

// --- Cancellation -------------------------------------------------------------

func TestCancel_RestoresSizeAndDepth(t *testing.T) {
	book := engine.New()

	_, err := book.Add(limit("1", common.Buy, 100, 10))
	require.NoError(t, err)
	require.Equal(t, 1, book.Size())

	book.Cancel("1")
	assert.Equal(t, 0, book.Size())
	bids, _ := book.DepthSnapshot()
	assert.Empty(t, bids)

	// A second cancel of the same, now-unknown, id is a no-op.
	book.Cancel("1")
	assert.Equal(t, 0, book.Size())
}

func TestCancel_UnknownIdIsNoOp(t *testing.T) {
	book := engine.New()
	book.Cancel("never-existed")
	assert.Equal(t, 0, book.Size())
}

func TestCancel_FromMiddleOfLevelPreservesFIFOForSiblings(t *testing.T) {
	book := engine.New()

	_, err := book.Add(limit("1", common.Buy, 100, 5))
	require.NoError(t, err)
	_, err = book.Add(limit("2", common.Buy, 100, 5))
	require.NoError(t, err)
	_, err = book.Add(limit("3", common.Buy, 100, 5))
	require.NoError(t, err)

	book.Cancel("2")
	assert.Equal(t, 2, book.Size())

	trades, err := book.Add(limit("4", common.Sell, 100, 5))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, common.OrderId("1"), trades[0].BidFill.OrderId)
}

// --- Admission rules -----------------------------------------------------------

func TestAdd_DuplicateOrderIdRejected(t *testing.T) {
	book := engine.New()

	_, err := book.Add(limit("1", common.Buy, 100, 10))
	require.NoError(t, err)

	trades, err := book.Add(limit("1", common.Buy, 100, 5))
	assert.ErrorIs(t, err, engine.ErrDuplicateOrder)
	assert.Nil(t, trades)
	assert.Equal(t, 1, book.Size())
}

func TestAdd_NoCrossLeavesBookUncrossed(t *testing.T) {
	book := engine.New()

	_, err := book.Add(limit("1", common.Buy, 99, 10))
	require.NoError(t, err)
	trades, err := book.Add(limit("2", common.Sell, 100, 10))
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, 2, book.Size())
}

func TestAdd_BoundaryPriceCrossesExactlyAtBestAsk(t *testing.T) {
	book := engine.New()
	_, err := book.Add(limit("1", common.Sell, 100, 10))
	require.NoError(t, err)

	trades, err := book.Add(limit("2", common.Buy, 100, 10))
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	book2 := engine.New()
	_, err = book2.Add(limit("1", common.Sell, 100, 10))
	require.NoError(t, err)
	trades, err = book2.Add(limit("2", common.Buy, 99, 10))
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestAdd_FillingExactlyRemainingRemovesOrderAndLevel(t *testing.T) {
	book := engine.New()
	_, err := book.Add(limit("1", common.Sell, 100, 10))
	require.NoError(t, err)

	trades, err := book.Add(limit("2", common.Buy, 100, 10))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	assert.Equal(t, 0, book.Size())
	_, asks := book.DepthSnapshot()
	assert.Empty(t, asks)
}
