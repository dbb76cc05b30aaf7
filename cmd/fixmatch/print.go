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
	"fmt"
	"io"

	"code.vegaprotocol.io/fixmatch/core/types"
	"code.vegaprotocol.io/fixmatch/gateway"

	"github.com/fatih/color"
)

var (
	bidColor   = color.New(color.FgGreen)
	askColor   = color.New(color.FgRed)
	tradeColor = color.New(color.FgCyan)
)

func printBook(w io.Writer, book types.AggregatedBook) {
	fmt.Fprint(w, "\nBIDS\n")
	for _, l := range book.Bids {
		bidColor.Fprintf(w, "%d %d\n", l.Price, l.Quantity)
	}
	fmt.Fprint(w, "\nASKS\n")
	for _, l := range book.Asks {
		askColor.Fprintf(w, "%d %d\n", l.Price, l.Quantity)
	}
}

func printReport(w io.Writer, r gateway.ExecutionReport) {
	switch r.ExecType {
	case gateway.ExecTypeTrade:
		tradeColor.Fprintf(w, "%-8s order=%d side=%s qty=%d px=%d cum=%d leaves=%d\n",
			r.ExecType, r.OrderID, r.Side, r.LastQty, r.LastPx, r.CumQty, r.LeavesQty)
	case gateway.ExecTypeRejected:
		fmt.Fprintf(w, "%-8s order=%s reason=%q\n", r.ExecType, r.ClOrdID, r.Text)
	default:
		fmt.Fprintf(w, "%-8s order=%d side=%s status=%s cum=%d leaves=%d\n",
			r.ExecType, r.OrderID, r.Side, r.OrdStatus, r.CumQty, r.LeavesQty)
	}
}
