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
	"testing"

	"code.vegaprotocol.io/fixmatch/core/types"
	"code.vegaprotocol.io/fixmatch/logging"

	"github.com/stretchr/testify/require"
)

type tstOB struct {
	*OrderBook
	log *logging.Logger
}

func (t *tstOB) Finish() {
	_ = t.log.Sync()
}

func getTestOrderBook(_ *testing.T, market string) *tstOB {
	tob := tstOB{
		log: logging.NewTestLogger(),
	}
	tob.OrderBook = NewOrderBook(tob.log, NewDefaultConfig(), market)

	// Turn on all the debug levels so we can cover more lines of code
	tob.OrderBook.LogPriceLevelsDebug = true
	tob.OrderBook.LogRemovedOrdersDebug = true
	return &tob
}

func limit(id uint64, side types.Side, price, size uint64) types.Order {
	return types.NewOrder(id, side, types.OrderTypeLimit, price, size)
}

func market(id uint64, side types.Side, size uint64) types.Order {
	return types.NewOrder(id, side, types.OrderTypeMarket, 0, size)
}

func fak(id uint64, side types.Side, price, size uint64) types.Order {
	return types.NewOrder(id, side, types.OrderTypeFillAndKill, price, size)
}

func (b *OrderBook) getNumberOfBuyLevels() int {
	return len(b.buy.getLevels())
}

func (b *OrderBook) getNumberOfSellLevels() int {
	return len(b.sell.getLevels())
}

func (b *OrderBook) getTotalBuyVolume() uint64 {
	var volume uint64
	for _, pl := range b.buy.getLevels() {
		volume += pl.volume
	}
	return volume
}

func (b *OrderBook) getTotalSellVolume() uint64 {
	var volume uint64
	for _, pl := range b.sell.getLevels() {
		volume += pl.volume
	}
	return volume
}

func (b *OrderBook) getVolumeAtLevel(price uint64, side types.Side) uint64 {
	lvl := b.getSide(side).getPriceLevelIfExists(price)
	if lvl == nil {
		return 0
	}
	return lvl.volume
}

// queueAt lists the ids resting at price in time priority.
func (b *OrderBook) queueAt(side types.Side, price uint64) []uint64 {
	lvl := b.getSide(side).getPriceLevelIfExists(price)
	if lvl == nil {
		return nil
	}
	ids := []uint64{}
	lvl.each(func(e *orderEntry) bool {
		ids = append(ids, e.order.ID)
		return true
	})
	return ids
}

// requireConsistent checks the index and the levels describe the same set
// of orders, that no level is empty, that level volumes add up and that the
// book is not crossed.
func requireConsistent(t *testing.T, b *OrderBook) {
	t.Helper()
	seen := 0
	for _, side := range []*OrderBookSide{b.buy, b.sell} {
		for _, lvl := range side.getLevels() {
			require.False(t, lvl.empty(), "empty level %d left on the %s side", lvl.price, side.side)
			var vol uint64
			lvl.each(func(e *orderEntry) bool {
				seen++
				vol += e.order.Remaining
				require.NotZero(t, e.order.Remaining, "filled order %d still resting", e.order.ID)
				require.Equal(t, side.side, e.loc.side)
				require.Equal(t, lvl.price, e.loc.price)
				idx, ok := b.ordersByID[e.order.ID]
				require.True(t, ok, "order %d resting but not indexed", e.order.ID)
				require.Same(t, e, idx)
				return true
			})
			require.Equal(t, vol, lvl.volume, "level %d volume", lvl.price)
		}
	}
	require.Equal(t, len(b.ordersByID), seen)
	for id, e := range b.ordersByID {
		lvl := b.getSide(e.loc.side).getPriceLevelIfExists(e.loc.price)
		require.NotNil(t, lvl, "index entry %d points to a missing level", id)
		require.True(t, lvl.contains(e), "index entry %d not in its level", id)
	}
	require.False(t, types.AggregatedBook{Bids: b.buy.aggregated(), Asks: b.sell.aggregated()}.Crossed())
}
