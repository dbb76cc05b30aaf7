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

package logging

import (
	"time"

	"code.vegaprotocol.io/fixmatch/core/types"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func Bool(key string, val bool) zap.Field {
	return zap.Bool(key, val)
}

func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}

func Error(val error) zap.Field {
	return zap.Error(val)
}

func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func Int64(key string, val int64) zap.Field {
	return zap.Int64(key, val)
}

func String(key string, val string) zap.Field {
	return zap.String(key, val)
}

func Strings(key string, val []string) zap.Field {
	return zap.Strings(key, val)
}

func Uint64(key string, val uint64) zap.Field {
	return zap.Uint64(key, val)
}

func OrderID(id uint64) zap.Field {
	return zap.Uint64("order-id", id)
}

func Order(o types.Order) zap.Field {
	return zap.String("order", o.String())
}

func OrderSummary(o types.OrderSummary) zap.Field {
	return zap.Object("order", zapOrderSummary(o))
}

func Trade(t types.Trade) zap.Field {
	return zap.String("trade", t.String())
}

func PriceLevel(l types.LevelInfo) zap.Field {
	return zap.Object("level", zapLevel(l))
}

type zapOrderSummary types.OrderSummary

func (o zapOrderSummary) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("id", o.ID)
	enc.AddString("side", o.Side.String())
	enc.AddString("type", o.Type.String())
	enc.AddUint64("price", o.Price)
	enc.AddUint64("size", o.Size)
	enc.AddUint64("remaining", o.Remaining)
	enc.AddString("status", o.Status.String())
	return nil
}

type zapLevel types.LevelInfo

func (l zapLevel) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("price", l.Price)
	enc.AddUint64("quantity", l.Quantity)
	enc.AddInt("orders", l.Orders)
	return nil
}
