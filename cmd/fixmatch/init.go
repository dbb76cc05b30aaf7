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

package main

import (
	"context"
	"fmt"
	"os"

	"code.vegaprotocol.io/fixmatch/config"
	"code.vegaprotocol.io/fixmatch/logging"

	"github.com/jessevdk/go-flags"
)

type InitCmd struct {
	config.HomeFlag

	Force bool `short:"f" long:"force" description:"Erase existing configuration at the specified path"`
}

var initCmd InitCmd

func (opts *InitCmd) Execute(_ []string) error {
	logger := logging.NewLoggerFromConfig(logging.NewDefaultConfig())
	defer logger.AtExit()

	cfg := config.NewDefaultConfig()
	if err := config.Write(opts.Home, cfg, opts.Force); err != nil {
		return fmt.Errorf("couldn't save configuration file: %w", err)
	}
	for _, dir := range []string{
		config.Resolve(opts.Home, cfg.Outbox.Dir),
		config.Resolve(opts.Home, "logs"),
	} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("couldn't create %s: %w", dir, err)
		}
	}

	logger.Info("configuration generated successfully", logging.String("path", config.FilePath(opts.Home)))
	return nil
}

func Init(_ context.Context, parser *flags.Parser) error {
	initCmd = InitCmd{
		HomeFlag: config.NewHomeFlag(),
	}

	short := "Initializes a matching node"
	long := "Generate the default configuration and directories a matching node needs to start"

	_, err := parser.AddCommand("init", short, long, &initCmd)
	return err
}
