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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"code.vegaprotocol.io/fixmatch/core/types"
	"code.vegaprotocol.io/fixmatch/gateway/rest"

	"github.com/jessevdk/go-flags"
)

type BookCmd struct {
	Address string        `long:"address" description:"address of the node REST server"`
	Timeout time.Duration `long:"timeout" description:"request timeout"`
}

var bookCmd BookCmd

func (opts *BookCmd) Execute(_ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	resp, err := fetchBook(ctx, http.DefaultClient, opts.Address)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", resp.Symbol)
	printBook(os.Stdout, types.AggregatedBook{Bids: resp.Bids, Asks: resp.Asks})
	return nil
}

func fetchBook(ctx context.Context, clt *http.Client, address string) (*rest.BookResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(address, "/")+"/api/v1/book", nil)
	if err != nil {
		return nil, err
	}
	resp, err := clt.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach node: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("node replied %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	out := &rest.BookResponse{}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("invalid book response: %w", err)
	}
	return out, nil
}

func Book(_ context.Context, parser *flags.Parser) error {
	bookCmd = BookCmd{
		Address: "http://127.0.0.1:3008",
		Timeout: 5 * time.Second,
	}

	_, err := parser.AddCommand("book", "Prints the book of a running node", "Fetch the aggregated book from a running node and print it", &bookCmd)
	return err
}
