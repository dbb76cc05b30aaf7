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

import (
	"fmt"
)

type Side uint8

const (
	SideUnspecified Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNSPECIFIED"
	}
}

// Opposite returns the side an order of side s matches against.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideUnspecified
	}
}

type OrderType uint8

const (
	OrderTypeUnspecified OrderType = iota
	// OrderTypeLimit rests on the book at its price until filled or cancelled.
	OrderTypeLimit
	// OrderTypeMarket trades against whatever the opposite side holds, the
	// unfilled remainder is discarded.
	OrderTypeMarket
	// OrderTypeFillAndKill trades like a limit order then cancels whatever is
	// left. It is never admitted when it cannot cross on arrival.
	OrderTypeFillAndKill
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeFillAndKill:
		return "FILL_AND_KILL"
	default:
		return "UNSPECIFIED"
	}
}

type OrderStatus uint8

const (
	OrderStatusUnspecified OrderStatus = iota
	OrderStatusActive
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCancelled
	// OrderStatusDiscarded is a market order whose remainder found no liquidity.
	OrderStatusDiscarded
	// OrderStatusIgnored is a submission whose id was already resting on the book.
	OrderStatusIgnored
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusActive:
		return "ACTIVE"
	case OrderStatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCancelled:
		return "CANCELLED"
	case OrderStatusDiscarded:
		return "DISCARDED"
	case OrderStatusIgnored:
		return "IGNORED"
	default:
		return "UNSPECIFIED"
	}
}

// IsTerminal reports whether no further transition can leave the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusDiscarded
}

// Order is the mutable execution state of an instruction. Once submitted the
// book owns it, callers only ever see an OrderSummary.
type Order struct {
	ID        uint64
	Side      Side
	Type      OrderType
	Price     uint64
	Size      uint64
	Remaining uint64
	Status    OrderStatus
}

// NewOrder returns an order with its whole size remaining.
func NewOrder(id uint64, side Side, typ OrderType, price, size uint64) Order {
	return Order{
		ID:        id,
		Side:      side,
		Type:      typ,
		Price:     price,
		Size:      size,
		Remaining: size,
	}
}

// Fill reduces the remaining size by qty. Filling more than what remains is
// an invariant violation reported as ErrOverfill, the order is left untouched.
func (o *Order) Fill(qty uint64) error {
	if qty > o.Remaining {
		return fmt.Errorf("%w: order %d remaining %d, fill %d", ErrOverfill, o.ID, o.Remaining, qty)
	}
	o.Remaining -= qty
	if o.Remaining == 0 {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
	return nil
}

func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// Filled is the quantity traded so far.
func (o *Order) Filled() uint64 {
	return o.Size - o.Remaining
}

func (o *Order) Clone() *Order {
	cpy := *o
	return &cpy
}

func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:        o.ID,
		Side:      o.Side,
		Type:      o.Type,
		Price:     o.Price,
		Size:      o.Size,
		Remaining: o.Remaining,
		Status:    o.Status,
	}
}

func (o Order) String() string {
	return fmt.Sprintf(
		"id(%d) side(%s) type(%s) price(%d) size(%d) remaining(%d) status(%s)",
		o.ID, o.Side, o.Type, o.Price, o.Size, o.Remaining, o.Status,
	)
}

// OrderSummary is an immutable copy of an order taken at a point in time.
type OrderSummary struct {
	ID        uint64      `json:"id"`
	Side      Side        `json:"side"`
	Type      OrderType   `json:"type"`
	Price     uint64      `json:"price"`
	Size      uint64      `json:"size"`
	Remaining uint64      `json:"remaining"`
	Status    OrderStatus `json:"status"`
}

func (o OrderSummary) Filled() uint64 {
	return o.Size - o.Remaining
}

// TradeInfo is one side of a trade.
type TradeInfo struct {
	OrderID  uint64 `json:"orderId"`
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
}

// Trade records a single match between the head orders of the best bid and
// best ask levels. Both sides carry the execution price and quantity.
type Trade struct {
	Seq       uint64    `json:"seq"`
	Bid       TradeInfo `json:"bid"`
	Ask       TradeInfo `json:"ask"`
	Aggressor Side      `json:"aggressor"`
}

func (t Trade) Price() uint64 {
	return t.Ask.Price
}

func (t Trade) Size() uint64 {
	return t.Ask.Quantity
}

// PassiveOrderID returns the id of the resting side of the trade.
func (t Trade) PassiveOrderID() uint64 {
	if t.Aggressor == SideBuy {
		return t.Ask.OrderID
	}
	return t.Bid.OrderID
}

// AggressiveOrderID returns the id of the incoming side of the trade.
func (t Trade) AggressiveOrderID() uint64 {
	if t.Aggressor == SideBuy {
		return t.Bid.OrderID
	}
	return t.Ask.OrderID
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"seq(%d) bid(%d) ask(%d) price(%d) size(%d) aggressor(%s)",
		t.Seq, t.Bid.OrderID, t.Ask.OrderID, t.Price(), t.Size(), t.Aggressor,
	)
}

// OrderConfirmation is the result of a submission.
type OrderConfirmation struct {
	Order                 OrderSummary
	Trades                []Trade
	PassiveOrdersAffected []OrderSummary
}

func (o OrderConfirmation) TradedVolume() uint64 {
	var vol uint64
	for _, t := range o.Trades {
		vol += t.Size()
	}
	return vol
}

type OrderCancellation struct {
	Order OrderSummary
}
