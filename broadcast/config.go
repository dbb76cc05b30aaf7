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

package broadcast

import (
	"time"

	"code.vegaprotocol.io/fixmatch/config/encoding"
	"code.vegaprotocol.io/fixmatch/logging"
)

const (
	namedLogger = "broadcast"

	DriverNone    = "none"
	DriverKafkaGo = "kafka-go"
	DriverSarama  = "sarama"
)

// Config represents the configuration of the broadcaster.
type Config struct {
	Level                encoding.LogLevel `long:"log-level"`
	Driver               string            `long:"driver" choice:"none" choice:"kafka-go" choice:"sarama" description:"publisher used for outbox records"`
	Brokers              []string          `long:"brokers" description:"kafka bootstrap brokers"`
	Topic                string            `long:"topic"`
	Interval             encoding.Duration `long:"interval" description:"time between two scans of the outbox"`
	BatchSize            int               `long:"batch-size" description:"maximum number of records published per scan"`
	MaxRetries           uint64            `long:"max-retries" description:"retries of a record before the scan is given up"`
	RetryInitialInterval encoding.Duration `long:"retry-initial-interval"`
	PruneEvery           int               `long:"prune-every" description:"prune acked records every n scans, 0 disables"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:                encoding.LogLevel{Level: logging.InfoLevel},
		Driver:               DriverNone,
		Brokers:              []string{"127.0.0.1:9092"},
		Topic:                "fixmatch.execution-reports",
		Interval:             encoding.Duration{Duration: 250 * time.Millisecond},
		BatchSize:            500,
		MaxRetries:           5,
		RetryInitialInterval: encoding.Duration{Duration: 100 * time.Millisecond},
		PruneEvery:           240,
	}
}
