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
	"encoding/binary"

	"code.vegaprotocol.io/fixmatch/core/types"
	"code.vegaprotocol.io/fixmatch/logging"

	"github.com/google/btree"
	"github.com/pkg/errors"
)

const sideDegree = 16

// ErrNoOrders signals the side of the book holds no orders.
var ErrNoOrders = errors.New("no orders on the book")

// OrderBookSide represent a side of the book, either Sell or Buy.
// Levels are kept best price first: descending for bids, ascending for asks.
type OrderBookSide struct {
	side   types.Side
	log    *logging.Logger
	levels *btree.BTreeG[*PriceLevel]
}

func newOrderBookSide(log *logging.Logger, side types.Side) *OrderBookSide {
	less := func(a, b *PriceLevel) bool { return a.price < b.price }
	if side == types.SideBuy {
		less = func(a, b *PriceLevel) bool { return a.price > b.price }
	}
	return &OrderBookSide{
		side:   side,
		log:    log,
		levels: btree.NewG(sideDegree, less),
	}
}

func (s *OrderBookSide) addOrder(e *orderEntry) {
	s.getPriceLevel(e.loc.price).addOrder(e)
}

// removeOrder takes an order out of its level, dropping the level once it is empty.
func (s *OrderBookSide) removeOrder(e *orderEntry) error {
	lvl := s.getPriceLevelIfExists(e.loc.price)
	if lvl == nil {
		return types.ErrOrderNotFound
	}
	if !lvl.removeOrder(e) {
		return types.ErrOrderNotFound
	}
	if lvl.empty() {
		s.levels.Delete(lvl)
	}
	return nil
}

func (s *OrderBookSide) getPriceLevelIfExists(price uint64) *PriceLevel {
	lvl, ok := s.levels.Get(&PriceLevel{price: price})
	if !ok {
		return nil
	}
	return lvl
}

func (s *OrderBookSide) getPriceLevel(price uint64) *PriceLevel {
	if lvl := s.getPriceLevelIfExists(price); lvl != nil {
		return lvl
	}
	lvl := NewPriceLevel(price)
	s.levels.ReplaceOrInsert(lvl)
	return lvl
}

// best returns the top of book level or nil.
func (s *OrderBookSide) best() *PriceLevel {
	lvl, ok := s.levels.Min()
	if !ok {
		return nil
	}
	return lvl
}

// BestPriceAndVolume returns the top of book price and volume
// returns an error if the book is empty.
func (s *OrderBookSide) BestPriceAndVolume() (uint64, uint64, error) {
	lvl := s.best()
	if lvl == nil {
		return 0, 0, ErrNoOrders
	}
	return lvl.price, lvl.volume, nil
}

// crosses tells whether an order on the other side at price can trade
// against the current top of this side.
func (s *OrderBookSide) crosses(price uint64) bool {
	lvl := s.best()
	if lvl == nil {
		return false
	}
	if s.side == types.SideSell {
		return lvl.price <= price
	}
	return lvl.price >= price
}

func (s *OrderBookSide) getLevels() []*PriceLevel {
	out := make([]*PriceLevel, 0, s.levels.Len())
	s.levels.Ascend(func(l *PriceLevel) bool {
		out = append(out, l)
		return true
	})
	return out
}

func (s *OrderBookSide) aggregated() []types.LevelInfo {
	out := make([]types.LevelInfo, 0, s.levels.Len())
	s.levels.Ascend(func(l *PriceLevel) bool {
		out = append(out, l.info())
		return true
	})
	return out
}

func (s *OrderBookSide) getOrderCount() int64 {
	var orderCount int64
	s.levels.Ascend(func(l *PriceLevel) bool {
		orderCount += int64(l.len())
		return true
	})
	return orderCount
}

func (s *OrderBookSide) getTotalVolume() int64 {
	var volume int64
	s.levels.Ascend(func(l *PriceLevel) bool {
		volume += int64(l.volume)
		return true
	})
	return volume
}

// hashBytes serialises price and volume of every level, 8 bytes each.
func (s *OrderBookSide) hashBytes() []byte {
	output := make([]byte, s.levels.Len()*16)
	var i int
	s.levels.Ascend(func(l *PriceLevel) bool {
		binary.BigEndian.PutUint64(output[i:], l.price)
		i += 8
		binary.BigEndian.PutUint64(output[i:], l.volume)
		i += 8
		return true
	})
	return output
}
