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

// Empty is used when a command or sub-command receives no argument and has
// no execution.
type Empty struct{}

// HomeFlag is shared by the commands reading the node home.
type HomeFlag struct {
	Home string `long:"home" description:"Path to the directory holding config.toml, the outbox and the logs"`
}

func NewHomeFlag() HomeFlag {
	return HomeFlag{Home: DefaultHome()}
}
