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
	"fmt"
	"strconv"
	"strings"

	"code.vegaprotocol.io/fixmatch/core/types"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidClOrdID         = errors.New("client order id must be a positive integer")
	ErrUnknownSymbol          = errors.New("unknown symbol")
	ErrInvalidSide            = errors.New("invalid side")
	ErrUnsupportedOrderType   = errors.New("unsupported order type")
	ErrUnsupportedTimeInForce = errors.New("unsupported time in force")
	ErrMissingPrice           = errors.New("limit order requires a price")
	ErrInvalidPrice           = errors.New("price must be a positive whole number of ticks")
	ErrInvalidQuantity        = errors.New("quantity must be a positive whole number")
	ErrDuplicateOrderID       = errors.New("duplicate order id")
	ErrUnknownOrder           = errors.New("unknown order")
	ErrNotOrderOwner          = errors.New("order belongs to another session")
)

// rejectReason is the metrics label of a translation failure.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidClOrdID):
		return "clordid"
	case errors.Is(err, ErrUnknownSymbol):
		return "symbol"
	case errors.Is(err, ErrInvalidSide):
		return "side"
	case errors.Is(err, ErrUnsupportedOrderType):
		return "ordtype"
	case errors.Is(err, ErrUnsupportedTimeInForce):
		return "tif"
	case errors.Is(err, ErrMissingPrice), errors.Is(err, ErrInvalidPrice):
		return "price"
	case errors.Is(err, ErrInvalidQuantity):
		return "qty"
	case errors.Is(err, ErrDuplicateOrderID):
		return "duplicate"
	case errors.Is(err, ErrUnknownOrder):
		return "unknown"
	case errors.Is(err, ErrNotOrderOwner):
		return "owner"
	default:
		return "engine"
	}
}

func parseOrderID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClOrdID, s)
	}
	return id, nil
}

func parseSide(s string) (types.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "1":
		return types.SideBuy, nil
	case "SELL", "2":
		return types.SideSell, nil
	}
	return types.SideUnspecified, fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

// parseOrderType maps OrdType and TimeInForce onto the book's order types.
// Only limit and market orders are routed, a limit IOC becomes FillAndKill.
func parseOrderType(ordType, tif string) (types.OrderType, error) {
	tif = strings.ToUpper(strings.TrimSpace(tif))
	switch strings.ToUpper(strings.TrimSpace(ordType)) {
	case "LIMIT", "2":
		switch tif {
		case "", "DAY", "0", "GTC", "1":
			return types.OrderTypeLimit, nil
		case "IOC", "3":
			return types.OrderTypeFillAndKill, nil
		}
		return types.OrderTypeUnspecified, fmt.Errorf("%w: %q", ErrUnsupportedTimeInForce, tif)
	case "MARKET", "1":
		switch tif {
		case "", "DAY", "0", "IOC", "3":
			return types.OrderTypeMarket, nil
		}
		return types.OrderTypeUnspecified, fmt.Errorf("%w: %q", ErrUnsupportedTimeInForce, tif)
	}
	return types.OrderTypeUnspecified, fmt.Errorf("%w: %q", ErrUnsupportedOrderType, ordType)
}

// parsePositiveInteger accepts decimal strings such as "100" or "100.00"
// whose value is a positive integer that fits 64 bits.
func parsePositiveInteger(s string) (uint64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsInteger() || !d.IsPositive() {
		return 0, false
	}
	bi := d.BigInt()
	if !bi.IsUint64() {
		return 0, false
	}
	return bi.Uint64(), true
}

// translate validates an inbound message and builds the order handed to
// the book. Nothing that fails here ever reaches the book.
func (g *Gateway) translate(msg NewOrderSingle) (types.Order, error) {
	id, err := parseOrderID(msg.ClOrdID)
	if err != nil {
		return types.Order{}, err
	}
	if msg.Symbol != g.symbol {
		return types.Order{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, msg.Symbol)
	}
	side, err := parseSide(msg.Side)
	if err != nil {
		return types.Order{}, err
	}
	typ, err := parseOrderType(msg.OrdType, msg.TimeInForce)
	if err != nil {
		return types.Order{}, err
	}
	qty, ok := parsePositiveInteger(msg.OrderQty)
	if !ok {
		return types.Order{}, fmt.Errorf("%w: %q", ErrInvalidQuantity, msg.OrderQty)
	}

	var price uint64
	if typ != types.OrderTypeMarket {
		if len(strings.TrimSpace(msg.Price)) == 0 {
			return types.Order{}, ErrMissingPrice
		}
		if price, ok = parsePositiveInteger(msg.Price); !ok {
			return types.Order{}, fmt.Errorf("%w: %q", ErrInvalidPrice, msg.Price)
		}
	}
	return types.NewOrder(id, side, typ, price, qty), nil
}
