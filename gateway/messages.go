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

package gateway

import (
	"time"

	"code.vegaprotocol.io/fixmatch/core/types"
)

// NewOrderSingle asks for a new order. Values follow FIX names, either the
// symbolic form (BUY, LIMIT, IOC) or the tag value (1, 2, 3) is accepted.
type NewOrderSingle struct {
	ClOrdID     string `json:"clOrdId"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrdType     string `json:"ordType"`
	TimeInForce string `json:"timeInForce,omitempty"`
	Price       string `json:"price,omitempty"`
	OrderQty    string `json:"orderQty"`
}

// OrderCancelRequest asks for a resting order to be cancelled.
type OrderCancelRequest struct {
	OrigClOrdID string `json:"origClOrdId"`
	Symbol      string `json:"symbol"`
}

type ExecType string

const (
	ExecTypeNew      ExecType = "NEW"
	ExecTypeTrade    ExecType = "TRADE"
	ExecTypeCanceled ExecType = "CANCELED"
	ExecTypeRejected ExecType = "REJECTED"
)

type OrdStatus string

const (
	OrdStatusNew             OrdStatus = "NEW"
	OrdStatusPartiallyFilled OrdStatus = "PARTIALLY_FILLED"
	OrdStatusFilled          OrdStatus = "FILLED"
	OrdStatusCanceled        OrdStatus = "CANCELED"
	OrdStatusRejected        OrdStatus = "REJECTED"
)

// IsTerminal reports whether the order can no longer change.
func (s OrdStatus) IsTerminal() bool {
	return s == OrdStatusFilled || s == OrdStatusCanceled || s == OrdStatusRejected
}

// ExecutionReport is the outbound message for every change of an order.
type ExecutionReport struct {
	ExecID       string    `json:"execId"`
	SessionID    string    `json:"sessionId"`
	OrderID      uint64    `json:"orderId"`
	ClOrdID      string    `json:"clOrdId"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side,omitempty"`
	ExecType     ExecType  `json:"execType"`
	OrdStatus    OrdStatus `json:"ordStatus"`
	Price        uint64    `json:"price,omitempty"`
	OrderQty     uint64    `json:"orderQty,omitempty"`
	LeavesQty    uint64    `json:"leavesQty"`
	CumQty       uint64    `json:"cumQty"`
	LastQty      uint64    `json:"lastQty,omitempty"`
	LastPx       uint64    `json:"lastPx,omitempty"`
	TradeSeq     uint64    `json:"tradeSeq,omitempty"`
	Text         string    `json:"text,omitempty"`
	TransactTime time.Time `json:"transactTime"`
}

// OrderView is the gateway's knowledge of an order it routed.
type OrderView struct {
	OrderID   uint64    `json:"orderId"`
	ClOrdID   string    `json:"clOrdId"`
	SessionID string    `json:"sessionId"`
	Side      string    `json:"side"`
	Type      string    `json:"type"`
	Price     uint64    `json:"price"`
	OrderQty  uint64    `json:"orderQty"`
	CumQty    uint64    `json:"cumQty"`
	LeavesQty uint64    `json:"leavesQty"`
	Status    OrdStatus `json:"status"`
}

type orderState struct {
	id        uint64
	clOrdID   string
	sessionID string
	side      types.Side
	typ       types.OrderType
	price     uint64
	size      uint64
	cumQty    uint64
	status    OrdStatus
}

func (s *orderState) leaves() uint64 {
	if s.status.IsTerminal() {
		return 0
	}
	return s.size - s.cumQty
}

func (s *orderState) view() OrderView {
	return OrderView{
		OrderID:   s.id,
		ClOrdID:   s.clOrdID,
		SessionID: s.sessionID,
		Side:      s.side.String(),
		Type:      s.typ.String(),
		Price:     s.price,
		OrderQty:  s.size,
		CumQty:    s.cumQty,
		LeavesQty: s.leaves(),
		Status:    s.status,
	}
}
