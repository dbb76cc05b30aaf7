// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package matching

import (
	"math/rand"
	"sync"
	"testing"

	"code.vegaprotocol.io/fixmatch/config/encoding"
	"code.vegaprotocol.io/fixmatch/core/types"
	"code.vegaprotocol.io/fixmatch/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submit(t *testing.T, book *tstOB, order types.Order) *types.OrderConfirmation {
	t.Helper()
	conf, err := book.SubmitOrder(order)
	require.NoError(t, err)
	requireConsistent(t, book.OrderBook)
	return conf
}

func TestOrderBook_ReferenceScenario(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	for _, o := range []types.Order{
		limit(1, types.SideSell, 100, 5),
		limit(2, types.SideSell, 103, 5),
		limit(3, types.SideSell, 105, 5),
	} {
		conf := submit(t, book, o)
		assert.Empty(t, conf.Trades)
		assert.Equal(t, types.OrderStatusActive, conf.Order.Status)
	}
	assert.Equal(t, 3, book.getNumberOfSellLevels())

	conf := submit(t, book, market(4, types.SideBuy, 8))
	require.Len(t, conf.Trades, 2)
	assert.Equal(t, types.TradeInfo{OrderID: 1, Price: 100, Quantity: 5}, conf.Trades[0].Ask)
	assert.Equal(t, types.TradeInfo{OrderID: 4, Price: 100, Quantity: 5}, conf.Trades[0].Bid)
	assert.Equal(t, types.TradeInfo{OrderID: 2, Price: 103, Quantity: 3}, conf.Trades[1].Ask)
	assert.Equal(t, types.TradeInfo{OrderID: 4, Price: 103, Quantity: 3}, conf.Trades[1].Bid)
	assert.Equal(t, types.SideBuy, conf.Trades[0].Aggressor)
	assert.Equal(t, types.OrderStatusFilled, conf.Order.Status)
	require.Len(t, conf.PassiveOrdersAffected, 2)
	assert.Equal(t, types.OrderStatusFilled, conf.PassiveOrdersAffected[0].Status)
	assert.Equal(t, types.OrderStatusPartiallyFilled, conf.PassiveOrdersAffected[1].Status)

	_, err := book.GetOrderByID(1)
	assert.ErrorIs(t, err, types.ErrOrderNotFound)
	o2, err := book.GetOrderByID(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), o2.Remaining)
	o3, err := book.GetOrderByID(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), o3.Remaining)
	_, err = book.GetOrderByID(4)
	assert.ErrorIs(t, err, types.ErrOrderNotFound)

	conf = submit(t, book, limit(5, types.SideBuy, 102, 8))
	assert.Empty(t, conf.Trades)

	snap := book.GetAggregatedBook()
	assert.Equal(t, []types.LevelInfo{{Price: 103, Quantity: 2, Orders: 1}, {Price: 105, Quantity: 5, Orders: 1}}, snap.Asks)
	assert.Equal(t, []types.LevelInfo{{Price: 102, Quantity: 8, Orders: 1}}, snap.Bids)
}

func TestOrderBook_TimePriorityWithinLevel(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	// sizes deliberately out of order so neither size nor id decide
	submit(t, book, limit(30, types.SideBuy, 100, 1))
	submit(t, book, limit(10, types.SideBuy, 100, 7))
	submit(t, book, limit(20, types.SideBuy, 100, 3))
	assert.Equal(t, []uint64{30, 10, 20}, book.queueAt(types.SideBuy, 100))

	conf := submit(t, book, limit(40, types.SideSell, 100, 9))
	require.Len(t, conf.Trades, 3)
	assert.Equal(t, uint64(30), conf.Trades[0].Bid.OrderID)
	assert.Equal(t, uint64(10), conf.Trades[1].Bid.OrderID)
	assert.Equal(t, uint64(20), conf.Trades[2].Bid.OrderID)
	assert.Equal(t, uint64(1), conf.Trades[2].Size())
	assert.Equal(t, []uint64{20}, book.queueAt(types.SideBuy, 100))
	assert.Equal(t, uint64(2), book.getVolumeAtLevel(100, types.SideBuy))
}

func TestOrderBook_PricePriorityAcrossLevels(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	submit(t, book, limit(1, types.SideBuy, 98, 1))
	submit(t, book, limit(2, types.SideBuy, 101, 1))
	submit(t, book, limit(3, types.SideBuy, 99, 1))

	snap := book.GetAggregatedBook()
	require.Len(t, snap.Bids, 3)
	assert.Equal(t, uint64(101), snap.Bids[0].Price)
	assert.Equal(t, uint64(99), snap.Bids[1].Price)
	assert.Equal(t, uint64(98), snap.Bids[2].Price)

	conf := submit(t, book, limit(4, types.SideSell, 99, 3))
	require.Len(t, conf.Trades, 2)
	assert.Equal(t, uint64(2), conf.Trades[0].Bid.OrderID)
	assert.Equal(t, uint64(3), conf.Trades[1].Bid.OrderID)
	// a crossing sell still executes at the ask price
	assert.Equal(t, uint64(99), conf.Trades[0].Price())
	assert.Equal(t, uint64(99), conf.Trades[1].Price())
	assert.Equal(t, types.SideSell, conf.Trades[0].Aggressor)

	// the remainder rests as the new best ask
	price, vol, err := book.BestOfferPriceAndVolume()
	require.NoError(t, err)
	assert.Equal(t, uint64(99), price)
	assert.Equal(t, uint64(1), vol)
	price, vol, err = book.BestBidPriceAndVolume()
	require.NoError(t, err)
	assert.Equal(t, uint64(98), price)
	assert.Equal(t, uint64(1), vol)
}

func TestOrderBook_CrossingBuyTradesAtAskPrice(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	submit(t, book, limit(1, types.SideSell, 100, 5))
	conf := submit(t, book, limit(2, types.SideBuy, 110, 5))
	require.Len(t, conf.Trades, 1)
	assert.Equal(t, uint64(100), conf.Trades[0].Bid.Price)
	assert.Equal(t, uint64(100), conf.Trades[0].Ask.Price)
	assert.Equal(t, types.OrderStatusFilled, conf.Order.Status)
	assert.Zero(t, book.GetTotalNumberOfOrders())
}

func TestOrderBook_FillAndKill(t *testing.T) {
	t.Run("no cross on an empty book leaves it empty", func(t *testing.T) {
		book := getTestOrderBook(t, "FIXM")
		defer book.Finish()

		conf := submit(t, book, fak(1, types.SideBuy, 100, 5))
		assert.Empty(t, conf.Trades)
		assert.Equal(t, types.OrderStatusCancelled, conf.Order.Status)
		assert.Zero(t, book.GetTotalNumberOfOrders())
		snap := book.GetAggregatedBook()
		assert.Empty(t, snap.Bids)
		assert.Empty(t, snap.Asks)
	})

	t.Run("no cross at the offered price is never admitted", func(t *testing.T) {
		book := getTestOrderBook(t, "FIXM")
		defer book.Finish()

		submit(t, book, limit(1, types.SideSell, 101, 5))
		conf := submit(t, book, fak(2, types.SideBuy, 100, 5))
		assert.Empty(t, conf.Trades)
		assert.Equal(t, int64(1), book.GetTotalNumberOfOrders())
		_, err := book.GetOrderByID(2)
		assert.ErrorIs(t, err, types.ErrOrderNotFound)
	})

	t.Run("partial fill cancels the remainder", func(t *testing.T) {
		book := getTestOrderBook(t, "FIXM")
		defer book.Finish()

		submit(t, book, limit(1, types.SideBuy, 100, 3))
		submit(t, book, limit(2, types.SideBuy, 99, 3))
		conf := submit(t, book, fak(3, types.SideSell, 100, 5))
		require.Len(t, conf.Trades, 1)
		assert.Equal(t, uint64(3), conf.Trades[0].Size())
		assert.Equal(t, types.OrderStatusCancelled, conf.Order.Status)
		assert.Equal(t, uint64(2), conf.Order.Remaining)
		assert.Equal(t, 0, book.getNumberOfSellLevels())
		assert.Equal(t, uint64(3), book.getTotalBuyVolume())
	})

	t.Run("full fill", func(t *testing.T) {
		book := getTestOrderBook(t, "FIXM")
		defer book.Finish()

		submit(t, book, limit(1, types.SideSell, 100, 3))
		submit(t, book, limit(2, types.SideSell, 101, 3))
		conf := submit(t, book, fak(3, types.SideBuy, 101, 5))
		require.Len(t, conf.Trades, 2)
		assert.Equal(t, types.OrderStatusFilled, conf.Order.Status)
		assert.Equal(t, uint64(1), book.getTotalSellVolume())
	})
}

func TestOrderBook_MarketOrders(t *testing.T) {
	t.Run("empty book discards the order", func(t *testing.T) {
		book := getTestOrderBook(t, "FIXM")
		defer book.Finish()

		conf := submit(t, book, market(1, types.SideBuy, 5))
		assert.Empty(t, conf.Trades)
		assert.Equal(t, types.OrderStatusDiscarded, conf.Order.Status)
		assert.Zero(t, book.GetTotalNumberOfOrders())
	})

	t.Run("remainder is discarded, never rests", func(t *testing.T) {
		book := getTestOrderBook(t, "FIXM")
		defer book.Finish()

		submit(t, book, limit(1, types.SideSell, 100, 2))
		conf := submit(t, book, market(2, types.SideBuy, 5))
		require.Len(t, conf.Trades, 1)
		assert.Equal(t, types.OrderStatusDiscarded, conf.Order.Status)
		assert.Equal(t, uint64(3), conf.Order.Remaining)
		assert.Zero(t, book.GetTotalNumberOfOrders())
		assert.Equal(t, 0, book.getNumberOfBuyLevels())
	})

	t.Run("market sell executes at the bid price", func(t *testing.T) {
		book := getTestOrderBook(t, "FIXM")
		defer book.Finish()

		submit(t, book, limit(1, types.SideBuy, 100, 2))
		submit(t, book, limit(2, types.SideBuy, 95, 2))
		conf := submit(t, book, market(3, types.SideSell, 3))
		require.Len(t, conf.Trades, 2)
		assert.Equal(t, types.TradeInfo{OrderID: 1, Price: 100, Quantity: 2}, conf.Trades[0].Bid)
		assert.Equal(t, types.TradeInfo{OrderID: 3, Price: 100, Quantity: 2}, conf.Trades[0].Ask)
		assert.Equal(t, types.TradeInfo{OrderID: 2, Price: 95, Quantity: 1}, conf.Trades[1].Bid)
		assert.Equal(t, types.SideSell, conf.Trades[1].Aggressor)
		assert.Equal(t, uint64(2), conf.Trades[1].PassiveOrderID())
		assert.Equal(t, uint64(3), conf.Trades[1].AggressiveOrderID())
		assert.Equal(t, uint64(1), book.getTotalBuyVolume())
	})
}

func TestOrderBook_DuplicateSubmissionIsIgnored(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	submit(t, book, limit(5, types.SideBuy, 100, 4))
	submit(t, book, limit(6, types.SideSell, 110, 4))
	before := book.GetAggregatedBook()
	hash := book.Hash()

	// same id, a different order that would otherwise trade
	conf := submit(t, book, limit(5, types.SideSell, 90, 10))
	assert.Empty(t, conf.Trades)
	assert.Equal(t, types.OrderStatusIgnored, conf.Order.Status)
	assert.Equal(t, before, book.GetAggregatedBook())
	assert.Equal(t, hash, book.Hash())

	o, err := book.GetOrderByID(5)
	require.NoError(t, err)
	assert.Equal(t, types.SideBuy, o.Side)
	assert.Equal(t, uint64(4), o.Remaining)
}

func TestOrderBook_MalformedDuplicateIsRejected(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	submit(t, book, limit(5, types.SideBuy, 100, 4))
	hash := book.Hash()

	conf, err := book.SubmitOrder(limit(5, types.SideSell, 0, 4))
	assert.ErrorIs(t, err, types.ErrInvalidPrice)
	assert.Nil(t, conf)
	assert.Equal(t, hash, book.Hash())
	requireConsistent(t, book.OrderBook)
}

func TestOrderBook_IDReusableOnceGone(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	submit(t, book, limit(1, types.SideBuy, 100, 4))
	_, ok := book.CancelOrder(1)
	require.True(t, ok)
	conf := submit(t, book, limit(1, types.SideBuy, 101, 2))
	assert.Equal(t, types.OrderStatusActive, conf.Order.Status)
	assert.Equal(t, uint64(2), book.getTotalBuyVolume())
}

func TestOrderBook_Cancel(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	submit(t, book, limit(1, types.SideSell, 100, 1))
	submit(t, book, limit(2, types.SideSell, 100, 2))
	submit(t, book, limit(3, types.SideSell, 100, 3))
	submit(t, book, limit(4, types.SideSell, 101, 4))

	// middle of a queue
	cancel, ok := book.CancelOrder(2)
	require.True(t, ok)
	assert.Equal(t, types.OrderStatusCancelled, cancel.Order.Status)
	assert.Equal(t, uint64(2), cancel.Order.Remaining)
	requireConsistent(t, book.OrderBook)
	assert.Equal(t, []uint64{1, 3}, book.queueAt(types.SideSell, 100))
	assert.Equal(t, uint64(4), book.getVolumeAtLevel(100, types.SideSell))

	// last order of a level drops the level
	_, ok = book.CancelOrder(4)
	require.True(t, ok)
	requireConsistent(t, book.OrderBook)
	assert.Equal(t, 1, book.getNumberOfSellLevels())
	assert.Nil(t, book.sell.getPriceLevelIfExists(101))

	// unknown and already cancelled ids are no-ops
	hash := book.Hash()
	_, ok = book.CancelOrder(4)
	assert.False(t, ok)
	_, ok = book.CancelOrder(42)
	assert.False(t, ok)
	assert.Equal(t, hash, book.Hash())

	// the queue keeps its order after a cancel
	conf := submit(t, book, market(5, types.SideBuy, 2))
	require.Len(t, conf.Trades, 2)
	assert.Equal(t, uint64(1), conf.Trades[0].Ask.OrderID)
	assert.Equal(t, uint64(3), conf.Trades[1].Ask.OrderID)
}

func TestOrderBook_CancelPartiallyFilled(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	submit(t, book, limit(1, types.SideBuy, 100, 10))
	submit(t, book, limit(2, types.SideSell, 100, 4))
	o, err := book.GetOrderByID(1)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusPartiallyFilled, o.Status)

	cancel, ok := book.CancelOrder(1)
	require.True(t, ok)
	assert.Equal(t, uint64(6), cancel.Order.Remaining)
	assert.Equal(t, uint64(4), cancel.Order.Filled())
	assert.Zero(t, book.GetTotalVolume())
}

func TestOrderBook_InvalidOrders(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	badRemaining := limit(1, types.SideBuy, 100, 5)
	badRemaining.Remaining = 3

	cases := []struct {
		name  string
		order types.Order
		err   error
	}{
		{"zero id", limit(0, types.SideBuy, 100, 1), types.ErrInvalidOrderID},
		{"no side", limit(1, types.SideUnspecified, 100, 1), types.ErrInvalidSide},
		{"no type", types.NewOrder(1, types.SideBuy, types.OrderTypeUnspecified, 100, 1), types.ErrInvalidType},
		{"unknown type", types.NewOrder(1, types.SideBuy, types.OrderType(42), 100, 1), types.ErrInvalidType},
		{"zero size", limit(1, types.SideBuy, 100, 0), types.ErrInvalidSize},
		{"remaining differs from size", badRemaining, types.ErrInvalidRemainingSize},
		{"limit without price", limit(1, types.SideBuy, 0, 1), types.ErrInvalidPrice},
		{"fill and kill without price", fak(1, types.SideBuy, 0, 1), types.ErrInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conf, err := book.SubmitOrder(tc.order)
			assert.ErrorIs(t, err, tc.err)
			assert.Nil(t, conf)
		})
	}
	assert.Zero(t, book.GetTotalNumberOfOrders())
}

func TestOrderBook_OverfillPanics(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	submit(t, book, limit(1, types.SideBuy, 100, 2))
	e := book.ordersByID[1]
	lvl := book.buy.getPriceLevelIfExists(100)
	assert.Panics(t, func() { book.fillEntry(lvl, e, 3) })
	// the failed fill leaves the order untouched
	assert.Equal(t, uint64(2), e.order.Remaining)
}

func TestOrderBook_HashTracksState(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	empty := book.Hash()
	submit(t, book, limit(1, types.SideBuy, 100, 2))
	withOrder := book.Hash()
	assert.NotEqual(t, empty, withOrder)

	_, ok := book.CancelOrder(1)
	require.True(t, ok)
	assert.Equal(t, empty, book.Hash())

	other := getTestOrderBook(t, "OTHER")
	assert.NotEqual(t, empty, other.Hash())
}

func TestOrderBook_EmptySides(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	_, _, err := book.BestBidPriceAndVolume()
	assert.ErrorIs(t, err, ErrNoOrders)
	_, _, err = book.BestOfferPriceAndVolume()
	assert.ErrorIs(t, err, ErrNoOrders)
}

func TestOrderBook_ReloadConf(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()

	cfg := NewDefaultConfig()
	cfg.Level = encoding.LogLevel{Level: logging.ErrorLevel}
	book.ReloadConf(cfg)
	assert.Equal(t, logging.ErrorLevel, book.log.GetLevel())
	assert.False(t, book.LogPriceLevelsDebug)
	assert.False(t, book.LogRemovedOrdersDebug)
	assert.Equal(t, "FIXM", book.MarketID())
}

// Random flow of every order type and cancels, the book must stay uncrossed,
// consistent, and every trade must balance.
func TestOrderBook_RandomFlowKeepsInvariants(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()
	book.LogPriceLevelsDebug = false
	book.LogRemovedOrdersDebug = false

	rnd := rand.New(rand.NewSource(42))
	resting := map[uint64]uint64{}
	for id := uint64(1); id <= 2000; id++ {
		if rnd.Intn(5) == 0 && len(resting) > 0 {
			for rid := range resting {
				_, ok := book.CancelOrder(rid)
				require.True(t, ok)
				delete(resting, rid)
				break
			}
			requireConsistent(t, book.OrderBook)
			continue
		}

		side := types.SideBuy
		if rnd.Intn(2) == 0 {
			side = types.SideSell
		}
		size := uint64(rnd.Intn(20) + 1)
		price := uint64(rnd.Intn(21) + 90)
		var o types.Order
		switch rnd.Intn(6) {
		case 0:
			o = market(id, side, size)
		case 1:
			o = fak(id, side, price, size)
		default:
			o = limit(id, side, price, size)
		}

		before := map[uint64]uint64{}
		for rid := range resting {
			s, err := book.GetOrderByID(rid)
			require.NoError(t, err)
			before[rid] = s.Remaining
		}

		conf := submit(t, book, o)

		var aggFilled uint64
		passiveFilled := map[uint64]uint64{}
		for _, tr := range conf.Trades {
			require.Equal(t, tr.Bid.Quantity, tr.Ask.Quantity)
			require.Equal(t, tr.Bid.Price, tr.Ask.Price)
			require.NotZero(t, tr.Size())
			require.Equal(t, id, tr.AggressiveOrderID())
			aggFilled += tr.Size()
			passiveFilled[tr.PassiveOrderID()] += tr.Size()
			if o.Type != types.OrderTypeMarket {
				// executions never happen outside the aggressor's limit
				if side == types.SideBuy {
					require.LessOrEqual(t, tr.Price(), price)
				} else {
					require.GreaterOrEqual(t, tr.Price(), price)
				}
			}
		}
		require.LessOrEqual(t, aggFilled, size)
		require.Equal(t, conf.Order.Filled(), aggFilled)
		for pid, filled := range passiveFilled {
			require.LessOrEqual(t, filled, before[pid])
			if filled == before[pid] {
				delete(resting, pid)
			}
		}
		if _, err := book.GetOrderByID(id); err == nil {
			require.Equal(t, types.OrderTypeLimit, o.Type)
			resting[id] = size
		}
	}
	assert.Equal(t, int64(len(resting)), book.GetTotalNumberOfOrders())
}

func TestOrderBook_ConcurrentAccess(t *testing.T) {
	book := getTestOrderBook(t, "FIXM")
	defer book.Finish()
	book.LogPriceLevelsDebug = false
	book.LogRemovedOrdersDebug = false

	const (
		workers   = 8
		perWorker = 250
	)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(int64(w)))
			for i := 0; i < perWorker; i++ {
				id := uint64(w*perWorker + i + 1)
				side := types.SideBuy
				if rnd.Intn(2) == 0 {
					side = types.SideSell
				}
				_, err := book.SubmitOrder(limit(id, side, uint64(rnd.Intn(11)+95), uint64(rnd.Intn(5)+1)))
				assert.NoError(t, err)
				if i%3 == 0 {
					book.CancelOrder(id - 1)
				}
				snap := book.GetAggregatedBook()
				assert.False(t, snap.Crossed())
			}
		}(w)
	}
	wg.Wait()
	requireConsistent(t, book.OrderBook)
}

func BenchmarkSubmitLimitOrders(b *testing.B) {
	log := logging.NewTestLogger()
	cfg := NewDefaultConfig()
	cfg.Level = encoding.LogLevel{Level: logging.ErrorLevel}
	book := NewOrderBook(log, cfg, "BENCH")
	rnd := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := types.SideBuy
		if i%2 == 0 {
			side = types.SideSell
		}
		_, _ = book.SubmitOrder(limit(uint64(i+1), side, uint64(rnd.Intn(50)+75), uint64(rnd.Intn(10)+1)))
	}
}
