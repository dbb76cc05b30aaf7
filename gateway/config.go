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

	"code.vegaprotocol.io/fixmatch/config/encoding"
	"code.vegaprotocol.io/fixmatch/logging"
)

const namedLogger = "gateway"

// Config represents the configuration of the gateway.
type Config struct {
	Level          encoding.LogLevel `long:"log-level"`
	OrderCacheSize int               `long:"order-cache-size" description:"number of finished orders kept for lookups"`
	REST           ServerConfig      `group:"REST" namespace:"rest"`
}

// ServerConfig configures the HTTP transport sessions connect through.
type ServerConfig struct {
	Enabled           encoding.Bool     `long:"enabled" choice:"true" choice:"false" description:" "`
	IP                string            `long:"ip" description:" "`
	Port              int               `long:"port" description:" "`
	ReadTimeout       encoding.Duration `long:"read-timeout"`
	WriteTimeout      encoding.Duration `long:"write-timeout"`
	StreamBufferSize  int               `long:"stream-buffer-size" description:"execution reports buffered per websocket before the session is dropped"`
	StreamPingPeriod  encoding.Duration `long:"stream-ping-period"`
	AllowedOrigins    []string          `long:"allowed-origins" description:"CORS origins, * for any"`
	SessionHeaderName string            `long:"session-header" description:"header carrying the session id"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:          encoding.LogLevel{Level: logging.InfoLevel},
		OrderCacheSize: 100000,
		REST: ServerConfig{
			Enabled:           true,
			IP:                "0.0.0.0",
			Port:              3008,
			ReadTimeout:       encoding.Duration{Duration: 5 * time.Second},
			WriteTimeout:      encoding.Duration{Duration: 5 * time.Second},
			StreamBufferSize:  256,
			StreamPingPeriod:  encoding.Duration{Duration: 30 * time.Second},
			AllowedOrigins:    []string{"*"},
			SessionHeaderName: "X-Session-ID",
		},
	}
}
