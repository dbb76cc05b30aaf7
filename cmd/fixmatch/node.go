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
	"os/signal"
	"syscall"
	"time"

	"code.vegaprotocol.io/fixmatch/broadcast"
	"code.vegaprotocol.io/fixmatch/broker"
	"code.vegaprotocol.io/fixmatch/config"
	"code.vegaprotocol.io/fixmatch/core/matching"
	"code.vegaprotocol.io/fixmatch/gateway"
	"code.vegaprotocol.io/fixmatch/gateway/rest"
	"code.vegaprotocol.io/fixmatch/logging"
	"code.vegaprotocol.io/fixmatch/metrics"
	"code.vegaprotocol.io/fixmatch/outbox"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type NodeCmd struct {
	config.HomeFlag
	config.Config
}

var nodeCmd NodeCmd

func (opts *NodeCmd) Execute(_ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bootLog := logging.NewLoggerFromConfig(logging.NewDefaultConfig())
	defer bootLog.AtExit()

	watcher, err := config.NewWatcher(ctx, bootLog, opts.Home)
	if err != nil {
		bootLog.Error("fatal error", logging.Error(err))
		return err
	}

	// the command line takes precedence over the file
	cfg := watcher.Get()
	if _, err := flags.NewParser(&cfg, flags.IgnoreUnknown).Parse(); err != nil {
		return err
	}
	cfg.Logging.File.Path = config.Resolve(opts.Home, cfg.Logging.File.Path)

	log := logging.NewLoggerFromConfig(cfg.Logging)
	defer log.AtExit()

	n := &node{
		log:     log,
		home:    opts.Home,
		conf:    cfg,
		watcher: watcher,
	}
	if err := n.run(ctx); err != nil {
		log.Error("fatal error", logging.Error(err))
		return err
	}
	return nil
}

type node struct {
	log     *logging.Logger
	home    string
	conf    config.Config
	watcher *config.Watcher
}

func (n *node) run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	if err := metrics.Setup(); err != nil {
		return errors.Wrap(err, "could not register metrics")
	}

	market := n.conf.Matching.Market
	book := matching.NewOrderBook(n.log, n.conf.Matching, market)
	bkr := broker.New(ctx, n.log, n.conf.Broker)

	ob, err := outbox.Open(ctx, n.log, n.conf.Outbox, config.Resolve(n.home, n.conf.Outbox.Dir))
	if err != nil {
		return err
	}
	defer func() {
		if err := ob.Close(); err != nil {
			n.log.Error("could not close the outbox", logging.Error(err))
		}
	}()
	if _, err := bkr.Subscribe(ob); err != nil {
		return err
	}

	gw, err := gateway.New(n.log, n.conf.Gateway, market, book, bkr)
	if err != nil {
		return err
	}

	pub, err := broadcast.NewPublisher(n.log, n.conf.Broadcast)
	if err != nil {
		return err
	}
	defer pub.Close()
	bc := broadcast.New(n.log, n.conf.Broadcast, ob, pub)

	srv := rest.New(n.log, n.conf.Gateway.REST, gw, bkr)

	n.watcher.OnConfigUpdate(
		func(cfg config.Config) { book.ReloadConf(cfg.Matching) },
		func(cfg config.Config) { gw.ReloadConf(cfg.Gateway) },
		func(cfg config.Config) { bkr.ReloadConf(cfg.Broker) },
		func(cfg config.Config) { ob.ReloadConf(cfg.Outbox) },
		func(cfg config.Config) { bc.ReloadConf(cfg.Broadcast) },
	)

	eg.Go(func() error { return metrics.Start(ctx, n.conf.Metrics) })
	eg.Go(func() error { return bc.Run(ctx) })

	if n.conf.Gateway.REST.Enabled {
		eg.Go(func() error { return srv.Start() })
		eg.Go(func() error {
			<-ctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			return srv.Stop(sctx)
		})
	}

	// waitSig will wait for a sigterm or sigint interrupt.
	eg.Go(func() error {
		gracefulStop := make(chan os.Signal, 1)
		signal.Notify(gracefulStop, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(gracefulStop)

		select {
		case sig := <-gracefulStop:
			n.log.Info("caught signal", logging.String("name", fmt.Sprintf("%+v", sig)))
			cancel()
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	n.log.Info("matching engine started",
		logging.String("market", market),
		logging.Bool("rest", bool(n.conf.Gateway.REST.Enabled)),
		logging.String("broadcast", n.conf.Broadcast.Driver))

	err = eg.Wait()
	n.log.Info("shutting down", logging.Int("live-orders", gw.LiveOrders()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func Node(_ context.Context, parser *flags.Parser) error {
	nodeCmd = NodeCmd{
		HomeFlag: config.NewHomeFlag(),
		Config:   config.NewDefaultConfig(),
	}

	short := "Runs a matching node"
	long := "Start the order book, the gateway, the outbox and its broadcaster until interrupted"

	_, err := parser.AddCommand("node", short, long, &nodeCmd)
	return err
}
