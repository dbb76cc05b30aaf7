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

const (
	// EnvDev selects the human readable console encoder.
	EnvDev = "dev"
	// EnvProd selects the JSON encoder.
	EnvProd = "prod"
)

// Config contains the configurable items for this package.
type Config struct {
	Environment string     `long:"env" choice:"dev" choice:"prod" description:"logging environment, dev or prod"`
	Level       string     `long:"level" description:"overrides the default level of the environment (debug, info, warn, error)"`
	File        FileConfig `group:"File" namespace:"file"`
}

// FileConfig configures an optional rotating log file written in addition to stdout.
type FileConfig struct {
	Enabled    bool   `long:"enabled" description:"also write logs to a rotating file"`
	Path       string `long:"path" description:"path of the log file"`
	MaxSizeMB  int    `long:"max-size" description:"size in megabytes before the file is rotated"`
	MaxBackups int    `long:"max-backups" description:"number of rotated files to keep"`
	MaxAgeDays int    `long:"max-age" description:"days to keep rotated files"`
	Compress   bool   `long:"compress" description:"gzip rotated files"`
}

// NewDefaultConfig creates an instance of the package-specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Environment: EnvDev,
		File: FileConfig{
			Enabled:    false,
			Path:       "logs/fixmatch.log",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}
