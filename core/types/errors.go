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

import "github.com/pkg/errors"

var (
	ErrInvalidOrderID       = errors.New("invalid order id")
	ErrInvalidSide          = errors.New("invalid side")
	ErrInvalidType          = errors.New("invalid order type")
	ErrInvalidSize          = errors.New("invalid size")
	ErrInvalidRemainingSize = errors.New("invalid remaining size")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrOrderNotFound        = errors.New("order not found")
	// ErrOverfill means the matching loop tried to fill an order beyond what
	// remains. It is never recoverable.
	ErrOverfill = errors.New("fill exceeds remaining quantity")
)
