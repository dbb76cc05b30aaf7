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
	"code.vegaprotocol.io/fixmatch/core/types"

	"github.com/google/btree"
)

const levelDegree = 8

// locator is where an order rests on the book. seq is the book wide arrival
// number of the order and orders a level's queue.
type locator struct {
	side  types.Side
	price uint64
	seq   uint64
}

type orderEntry struct {
	order types.Order
	loc   locator
}

func entryLess(a, b *orderEntry) bool {
	return a.loc.seq < b.loc.seq
}

// PriceLevel holds all the resting orders at one price, oldest first.
type PriceLevel struct {
	price  uint64
	volume uint64
	orders *btree.BTreeG[*orderEntry]
}

// NewPriceLevel instantiate a new PriceLevel.
func NewPriceLevel(price uint64) *PriceLevel {
	return &PriceLevel{
		price:  price,
		orders: btree.NewG(levelDegree, entryLess),
	}
}

func (l *PriceLevel) addOrder(e *orderEntry) {
	l.orders.ReplaceOrInsert(e)
	l.volume += e.order.Remaining
}

// removeOrder reports false when e itself is not queued on this level.
func (l *PriceLevel) removeOrder(e *orderEntry) bool {
	if !l.contains(e) {
		return false
	}
	l.orders.Delete(e)
	l.reduceVolume(e.order.Remaining)
	return true
}

func (l *PriceLevel) reduceVolume(reduceBy uint64) {
	if reduceBy > l.volume {
		l.volume = 0
		return
	}
	l.volume -= reduceBy
}

// head returns the oldest order of the level.
func (l *PriceLevel) head() *orderEntry {
	e, ok := l.orders.Min()
	if !ok {
		return nil
	}
	return e
}

func (l *PriceLevel) contains(e *orderEntry) bool {
	got, ok := l.orders.Get(e)
	return ok && got == e
}

func (l *PriceLevel) len() int {
	return l.orders.Len()
}

func (l *PriceLevel) empty() bool {
	return l.orders.Len() == 0
}

// each walks the queue in time priority until fn returns false.
func (l *PriceLevel) each(fn func(*orderEntry) bool) {
	l.orders.Ascend(fn)
}

func (l *PriceLevel) info() types.LevelInfo {
	return types.LevelInfo{
		Price:    l.price,
		Quantity: l.volume,
		Orders:   l.len(),
	}
}
