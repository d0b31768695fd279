package book_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderengine/internal/book"
	"orderengine/internal/common"
)

func TestInsert_OrdersSameLevelSortedByPriceAndFIFO(t *testing.T) {
	b := book.New()

	o1 := common.NewOrder("1", common.Buy, common.GoodTillCancel, 99, 100)
	o2 := common.NewOrder("2", common.Buy, common.GoodTillCancel, 99, 90)
	o3 := common.NewOrder("3", common.Sell, common.GoodTillCancel, 100, 80)
	b.Insert(&o1)
	b.Insert(&o2)
	b.Insert(&o3)

	bidLevels := b.Bids.Levels()
	require.Len(t, bidLevels, 1)
	assert.Equal(t, common.Price(99), bidLevels[0].Price)
	assert.Equal(t, common.Quantity(190), bidLevels[0].TotalQuantity())

	front, ok := bidLevels[0].Front()
	require.True(t, ok)
	assert.Equal(t, common.OrderId("1"), front.OrderId)

	askLevels := b.Asks.Levels()
	require.Len(t, askLevels, 1)
	assert.Equal(t, common.Price(100), askLevels[0].Price)
}

func TestLevels_BidsDescendingAsksAscending(t *testing.T) {
	b := book.New()
	for _, o := range []common.Order{
		common.NewOrder("1", common.Buy, common.GoodTillCancel, 99, 10),
		common.NewOrder("2", common.Buy, common.GoodTillCancel, 101, 10),
		common.NewOrder("3", common.Buy, common.GoodTillCancel, 100, 10),
		common.NewOrder("4", common.Sell, common.GoodTillCancel, 105, 10),
		common.NewOrder("5", common.Sell, common.GoodTillCancel, 103, 10),
		common.NewOrder("6", common.Sell, common.GoodTillCancel, 104, 10),
	} {
		o := o
		b.Insert(&o)
	}

	var bidPrices []common.Price
	for _, lvl := range b.Bids.Levels() {
		bidPrices = append(bidPrices, lvl.Price)
	}
	assert.Equal(t, []common.Price{101, 100, 99}, bidPrices)

	var askPrices []common.Price
	for _, lvl := range b.Asks.Levels() {
		askPrices = append(askPrices, lvl.Price)
	}
	assert.Equal(t, []common.Price{103, 104, 105}, askPrices)
}

func TestRemove_DropsEmptyLevelAndIndexEntry(t *testing.T) {
	b := book.New()
	o := common.NewOrder("1", common.Buy, common.GoodTillCancel, 100, 10)
	b.Insert(&o)
	require.Equal(t, 1, b.Size())

	removed, ok := b.Remove("1")
	require.True(t, ok)
	assert.Equal(t, common.OrderId("1"), removed.OrderId)

	assert.Equal(t, 0, b.Size())
	assert.False(t, b.Contains("1"))
	assert.Equal(t, 0, b.Bids.Len())
}

func TestRemove_UnknownIdIsNoOp(t *testing.T) {
	b := book.New()
	_, ok := b.Remove("missing")
	assert.False(t, ok)
}

func TestRemove_MiddleOfLevelLeavesSiblingsIntactAndOrdered(t *testing.T) {
	b := book.New()
	for _, id := range []common.OrderId{"1", "2", "3"} {
		o := common.NewOrder(id, common.Buy, common.GoodTillCancel, 100, 10)
		b.Insert(&o)
	}

	b.Remove("2")
	require.Equal(t, 2, b.Size())

	lvl, ok := b.Bids.Best()
	require.True(t, ok)
	front, ok := lvl.Front()
	require.True(t, ok)
	assert.Equal(t, common.OrderId("1"), front.OrderId)

	// "3" should still be reachable and live.
	assert.True(t, b.Contains("3"))
}

func TestDepthSnapshot_AggregatesRemainingQuantity(t *testing.T) {
	b := book.New()
	for i, q := range []common.Quantity{100, 90, 80} {
		id := []common.OrderId{"1", "2", "3"}[i]
		o := common.NewOrder(id, common.Buy, common.GoodTillCancel, 50, q)
		b.Insert(&o)
	}

	bids, asks := b.DepthSnapshot()
	assert.Empty(t, asks)
	require.Len(t, bids, 1)
	assert.Equal(t, common.LevelInfo{Price: 50, Quantity: 270}, bids[0])
}
