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

package types

// LevelInfo is the aggregated state of one price level.
type LevelInfo struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
	Orders   int    `json:"orders"`
}

// AggregatedBook lists each side's levels best price first.
type AggregatedBook struct {
	Bids []LevelInfo `json:"bids"`
	Asks []LevelInfo `json:"asks"`
}

func (b AggregatedBook) BestBid() (LevelInfo, bool) {
	if len(b.Bids) == 0 {
		return LevelInfo{}, false
	}
	return b.Bids[0], true
}

func (b AggregatedBook) BestAsk() (LevelInfo, bool) {
	if len(b.Asks) == 0 {
		return LevelInfo{}, false
	}
	return b.Asks[0], true
}

// Crossed reports whether the best bid is at or above the best ask.
func (b AggregatedBook) Crossed() bool {
	bid, okb := b.BestBid()
	ask, oka := b.BestAsk()
	return okb && oka && bid.Price >= ask.Price
}
