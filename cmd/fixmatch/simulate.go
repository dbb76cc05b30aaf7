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
	"io"
	"os"

	"code.vegaprotocol.io/fixmatch/core/matching"
	"code.vegaprotocol.io/fixmatch/gateway"
	"code.vegaprotocol.io/fixmatch/logging"

	"github.com/jessevdk/go-flags"
)

type SimulateCmd struct {
	Verbose bool `short:"v" long:"verbose" description:"log the book after every order"`
}

var simulateCmd SimulateCmd

// the orders of the reference session, in arrival order
var simulation = []gateway.NewOrderSingle{
	{ClOrdID: "1", Side: "SELL", OrdType: "LIMIT", Price: "100", OrderQty: "5"},
	{ClOrdID: "2", Side: "SELL", OrdType: "LIMIT", Price: "103", OrderQty: "5"},
	{ClOrdID: "3", Side: "SELL", OrdType: "LIMIT", Price: "105", OrderQty: "5"},
	{ClOrdID: "4", Side: "BUY", OrdType: "MARKET", OrderQty: "8"},
	{ClOrdID: "5", Side: "BUY", OrdType: "LIMIT", Price: "102", OrderQty: "8"},
}

func (opts *SimulateCmd) Execute(_ []string) error {
	log := logging.NewDevLogger()
	if !opts.Verbose {
		log.SetLevel(logging.WarnLevel)
	}
	defer log.AtExit()
	return runSimulation(log, os.Stdout, opts.Verbose)
}

func runSimulation(log *logging.Logger, w io.Writer, verbose bool) error {
	cfg := matching.NewDefaultConfig()
	cfg.LogPriceLevelsDebug = verbose
	book := matching.NewOrderBook(log, cfg, cfg.Market)

	gw, err := gateway.New(log, gateway.NewDefaultConfig(), cfg.Market, book, nil)
	if err != nil {
		return err
	}
	for _, msg := range simulation {
		msg.Symbol = cfg.Market
		for _, r := range gw.HandleNewOrder("simulation", msg) {
			printReport(w, r)
		}
	}
	printBook(w, gw.Book())
	return nil
}

func Simulate(_ context.Context, parser *flags.Parser) error {
	simulateCmd = SimulateCmd{}

	short := "Runs the reference session in process"
	long := fmt.Sprintf("Submit %d orders to an in-memory book and print the execution reports and the resulting book", len(simulation))

	_, err := parser.AddCommand("simulate", short, long, &simulateCmd)
	return err
}
