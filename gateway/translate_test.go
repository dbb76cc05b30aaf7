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
	"testing"

	"code.vegaprotocol.io/fixmatch/core/types"
	"code.vegaprotocol.io/fixmatch/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranslator(t *testing.T) *Gateway {
	t.Helper()
	g, err := New(logging.NewTestLogger(), NewDefaultConfig(), "FIXM", nil, nil)
	require.NoError(t, err)
	return g
}

func TestTranslateValidOrders(t *testing.T) {
	g := newTranslator(t)

	cases := []struct {
		name string
		msg  NewOrderSingle
		want types.Order
	}{
		{
			name: "limit buy",
			msg:  NewOrderSingle{ClOrdID: "1", Symbol: "FIXM", Side: "BUY", OrdType: "LIMIT", Price: "100", OrderQty: "10"},
			want: types.NewOrder(1, types.SideBuy, types.OrderTypeLimit, 100, 10),
		},
		{
			name: "limit sell with tag values",
			msg:  NewOrderSingle{ClOrdID: "2", Symbol: "FIXM", Side: "2", OrdType: "2", TimeInForce: "1", Price: "101.00", OrderQty: "5"},
			want: types.NewOrder(2, types.SideSell, types.OrderTypeLimit, 101, 5),
		},
		{
			name: "limit ioc is fill and kill",
			msg:  NewOrderSingle{ClOrdID: "3", Symbol: "FIXM", Side: "sell", OrdType: "limit", TimeInForce: "IOC", Price: "99", OrderQty: "7"},
			want: types.NewOrder(3, types.SideSell, types.OrderTypeFillAndKill, 99, 7),
		},
		{
			name: "market ignores price",
			msg:  NewOrderSingle{ClOrdID: "4", Symbol: "FIXM", Side: "1", OrdType: "1", Price: "garbage", OrderQty: "3"},
			want: types.NewOrder(4, types.SideBuy, types.OrderTypeMarket, 0, 3),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := g.translate(tc.msg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTranslateRejects(t *testing.T) {
	g := newTranslator(t)
	valid := NewOrderSingle{ClOrdID: "1", Symbol: "FIXM", Side: "BUY", OrdType: "LIMIT", Price: "100", OrderQty: "10"}

	cases := []struct {
		name   string
		mutate func(*NewOrderSingle)
		err    error
		reason string
	}{
		{"alphanumeric client order id", func(m *NewOrderSingle) { m.ClOrdID = "abc" }, ErrInvalidClOrdID, "clordid"},
		{"zero client order id", func(m *NewOrderSingle) { m.ClOrdID = "0" }, ErrInvalidClOrdID, "clordid"},
		{"unknown symbol", func(m *NewOrderSingle) { m.Symbol = "OTHER" }, ErrUnknownSymbol, "symbol"},
		{"bad side", func(m *NewOrderSingle) { m.Side = "SHORT" }, ErrInvalidSide, "side"},
		{"stop order", func(m *NewOrderSingle) { m.OrdType = "3" }, ErrUnsupportedOrderType, "ordtype"},
		{"fill or kill", func(m *NewOrderSingle) { m.TimeInForce = "4" }, ErrUnsupportedTimeInForce, "tif"},
		{"market gtc", func(m *NewOrderSingle) { m.OrdType = "MARKET"; m.TimeInForce = "GTC" }, ErrUnsupportedTimeInForce, "tif"},
		{"missing price", func(m *NewOrderSingle) { m.Price = "" }, ErrMissingPrice, "price"},
		{"fractional price", func(m *NewOrderSingle) { m.Price = "100.5" }, ErrInvalidPrice, "price"},
		{"negative price", func(m *NewOrderSingle) { m.Price = "-1" }, ErrInvalidPrice, "price"},
		{"zero quantity", func(m *NewOrderSingle) { m.OrderQty = "0" }, ErrInvalidQuantity, "qty"},
		{"quantity overflows", func(m *NewOrderSingle) { m.OrderQty = "18446744073709551616" }, ErrInvalidQuantity, "qty"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := valid
			tc.mutate(&msg)
			_, err := g.translate(msg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.reason, rejectReason(err))
		})
	}
}

func TestParsePositiveInteger(t *testing.T) {
	v, ok := parsePositiveInteger(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), v)

	v, ok = parsePositiveInteger("18446744073709551615")
	assert.True(t, ok)
	assert.Equal(t, uint64(18446744073709551615), v)

	_, ok = parsePositiveInteger("1e-2")
	assert.False(t, ok)
}

func TestOrderStateLeaves(t *testing.T) {
	s := &orderState{size: 10, cumQty: 4, status: OrdStatusPartiallyFilled}
	assert.Equal(t, uint64(6), s.leaves())

	s.status = OrdStatusCanceled
	assert.Equal(t, uint64(0), s.leaves())
	assert.Equal(t, uint64(4), s.view().CumQty)
}
