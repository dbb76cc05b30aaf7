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
	"code.vegaprotocol.io/fixmatch/config/encoding"
	"code.vegaprotocol.io/fixmatch/logging"
)

const namedLogger = "matching"

// Config represents the configuration of the Matching engine.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	Market                string `long:"market" description:"symbol of the instrument traded on the book"`
	LogPriceLevelsDebug   bool   `long:"log-price-levels-debug"`
	LogRemovedOrdersDebug bool   `long:"log-removed-orders-debug"`
}

// NewDefaultConfig creates an instance of the package specific configuration, given a
// pointer to a logger instance to be used for logging within the package.
func NewDefaultConfig() Config {
	return Config{
		Level:                 encoding.LogLevel{Level: logging.InfoLevel},
		Market:                "FIXM",
		LogPriceLevelsDebug:   false,
		LogRemovedOrdersDebug: false,
	}
}
