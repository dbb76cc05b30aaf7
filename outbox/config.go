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

package outbox

import (
	"code.vegaprotocol.io/fixmatch/config/encoding"
	"code.vegaprotocol.io/fixmatch/logging"
)

const namedLogger = "outbox"

// Config represents the configuration of the outbox.
type Config struct {
	Level      encoding.LogLevel `long:"log-level"`
	Dir        string            `long:"dir" description:"pebble directory, relative paths are resolved against the node home"`
	SyncWrites encoding.Bool     `long:"sync-writes" description:"fsync every appended batch"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:      encoding.LogLevel{Level: logging.InfoLevel},
		Dir:        "outbox",
		SyncWrites: true,
	}
}
