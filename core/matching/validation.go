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
	"code.vegaprotocol.io/fixmatch/logging"
)

func (b *OrderBook) validateOrder(order *types.Order) (err error) {
	if order.ID == 0 {
		err = types.ErrInvalidOrderID
	} else if order.Side != types.SideBuy && order.Side != types.SideSell {
		err = types.ErrInvalidSide
	} else if order.Type == types.OrderTypeUnspecified || order.Type > types.OrderTypeFillAndKill {
		err = types.ErrInvalidType
	} else if order.Size == 0 {
		err = types.ErrInvalidSize
	} else if order.Remaining != order.Size {
		err = types.ErrInvalidRemainingSize
	} else if order.Type != types.OrderTypeMarket && order.Price == 0 {
		err = types.ErrInvalidPrice
	}

	if err != nil {
		b.log.Debug("invalid order submitted",
			logging.String("market", b.marketID),
			logging.Order(*order),
			logging.Error(err))
	}
	return err
}
