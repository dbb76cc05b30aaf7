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

package config

import (
	"bytes"
	"os"
	"path/filepath"

	"code.vegaprotocol.io/fixmatch/broadcast"
	"code.vegaprotocol.io/fixmatch/broker"
	"code.vegaprotocol.io/fixmatch/core/matching"
	"code.vegaprotocol.io/fixmatch/gateway"
	"code.vegaprotocol.io/fixmatch/logging"
	"code.vegaprotocol.io/fixmatch/metrics"
	"code.vegaprotocol.io/fixmatch/outbox"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	configFileName = "config.toml"
	defaultHomeDir = ".fixmatch"
)

var ErrConfigExists = errors.New("configuration file already exists")

// Config ties together all other application configuration types.
type Config struct {
	Logging   logging.Config   `group:"Logging" namespace:"logging"`
	Matching  matching.Config  `group:"Matching" namespace:"matching"`
	Gateway   gateway.Config   `group:"Gateway" namespace:"gateway"`
	Broker    broker.Config    `group:"Broker" namespace:"broker"`
	Outbox    outbox.Config    `group:"Outbox" namespace:"outbox"`
	Broadcast broadcast.Config `group:"Broadcast" namespace:"broadcast"`
	Metrics   metrics.Config   `group:"Metrics" namespace:"metrics"`
}

// NewDefaultConfig returns a set of default configs for all packages, as
// specified at the per package config level.
func NewDefaultConfig() Config {
	return Config{
		Logging:   logging.NewDefaultConfig(),
		Matching:  matching.NewDefaultConfig(),
		Gateway:   gateway.NewDefaultConfig(),
		Broker:    broker.NewDefaultConfig(),
		Outbox:    outbox.NewDefaultConfig(),
		Broadcast: broadcast.NewDefaultConfig(),
		Metrics:   metrics.NewDefaultConfig(),
	}
}

// DefaultHome returns the home used when none is given on the command line.
func DefaultHome() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return defaultHomeDir
	}
	return filepath.Join(dir, defaultHomeDir)
}

// FilePath returns the path of the configuration file in home.
func FilePath(home string) string {
	return filepath.Join(home, configFileName)
}

// Resolve makes p absolute against home when it is relative.
func Resolve(home, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(home, p)
}

// Read loads the configuration file of home over the defaults.
func Read(home string) (Config, error) {
	cfg := NewDefaultConfig()
	if err := decodeFile(FilePath(home), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "could not read configuration %s", path)
	}
	md, err := toml.Decode(string(buf), cfg)
	if err != nil {
		return errors.Wrapf(err, "could not decode configuration %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("unknown configuration keys in %s: %v", path, undecoded)
	}
	return nil
}

// Write saves cfg in home, an existing file is only replaced when force is set.
func Write(home string, cfg Config, force bool) error {
	path := FilePath(home)
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Wrap(ErrConfigExists, path)
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return errors.Wrapf(err, "could not create home %s", home)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(err, "could not encode configuration")
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
