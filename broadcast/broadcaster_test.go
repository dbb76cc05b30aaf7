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

package broadcast_test

import (
	"context"
	"testing"
	"time"

	"code.vegaprotocol.io/fixmatch/broadcast"
	"code.vegaprotocol.io/fixmatch/broadcast/mocks"
	"code.vegaprotocol.io/fixmatch/config/encoding"
	"code.vegaprotocol.io/fixmatch/gateway"
	"code.vegaprotocol.io/fixmatch/logging"
	"code.vegaprotocol.io/fixmatch/outbox"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBroadcaster struct {
	*broadcast.Broadcaster
	ctrl   *gomock.Controller
	pub    *mocks.MockPublisher
	outbox *outbox.Outbox
}

func testConfig() broadcast.Config {
	cfg := broadcast.NewDefaultConfig()
	cfg.Interval = encoding.Duration{Duration: 5 * time.Millisecond}
	cfg.RetryInitialInterval = encoding.Duration{Duration: time.Millisecond}
	cfg.MaxRetries = 2
	cfg.PruneEvery = 1
	return cfg
}

func getTestBroadcaster(t *testing.T, cfg broadcast.Config) *testBroadcaster {
	t.Helper()
	log := logging.NewTestLogger()
	ocfg := outbox.NewDefaultConfig()
	ocfg.SyncWrites = false
	o, err := outbox.Open(context.Background(), log, ocfg, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { o.Close() })

	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	return &testBroadcaster{
		Broadcaster: broadcast.New(log, cfg, o, pub),
		ctrl:        ctrl,
		pub:         pub,
		outbox:      o,
	}
}

func (tb *testBroadcaster) appendReports(t *testing.T, ids ...uint64) {
	t.Helper()
	for _, id := range ids {
		_, err := tb.outbox.Append(gateway.ExecutionReport{OrderID: id, SessionID: "s1", ExecType: gateway.ExecTypeNew})
		require.NoError(t, err)
	}
}

func TestFlushPublishesInOrderAndAcks(t *testing.T) {
	tb := getTestBroadcaster(t, testConfig())
	defer tb.ctrl.Finish()
	tb.appendReports(t, 10, 20, 30)

	gomock.InOrder(
		tb.pub.EXPECT().Publish(gomock.Any(), []byte("10"), gomock.Any()).Return(nil),
		tb.pub.EXPECT().Publish(gomock.Any(), []byte("20"), gomock.Any()).Return(nil),
		tb.pub.EXPECT().Publish(gomock.Any(), []byte("30"), gomock.Any()).Return(nil),
	)

	n, err := tb.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(0), tb.outbox.PendingCount())
}

func TestFlushRetriesThenSucceeds(t *testing.T) {
	tb := getTestBroadcaster(t, testConfig())
	defer tb.ctrl.Finish()
	tb.appendReports(t, 1)

	gomock.InOrder(
		tb.pub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("leader not available")),
		tb.pub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
	)

	n, err := tb.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := tb.outbox.Get(1)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateAcked, rec.State)
	assert.Equal(t, uint32(2), rec.Attempts)
}

func TestFlushStopsAtFailingRecord(t *testing.T) {
	tb := getTestBroadcaster(t, testConfig())
	defer tb.ctrl.Finish()
	tb.appendReports(t, 1, 2)

	// one attempt plus MaxRetries, the second record is never tried
	tb.pub.EXPECT().Publish(gomock.Any(), []byte("1"), gomock.Any()).Return(errors.New("down")).Times(3)

	n, err := tb.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(2), tb.outbox.PendingCount())
}

func TestRunDrainsAndPrunes(t *testing.T) {
	tb := getTestBroadcaster(t, testConfig())
	defer tb.ctrl.Finish()
	tb.appendReports(t, 1, 2, 3)
	tb.pub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)

	ctx, cfunc := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- tb.Run(ctx) }()

	assert.Eventually(t, func() bool {
		_, err := tb.outbox.Get(3)
		return errors.Is(err, outbox.ErrRecordNotFound)
	}, 2*time.Second, 5*time.Millisecond)

	cfunc()
	assert.NoError(t, <-done)
	assert.Equal(t, int64(0), tb.outbox.PendingCount())
}

func TestNewPublisher(t *testing.T) {
	log := logging.NewTestLogger()

	cfg := broadcast.NewDefaultConfig()
	pub, err := broadcast.NewPublisher(log, cfg)
	require.NoError(t, err)
	assert.NoError(t, pub.Publish(context.Background(), []byte("1"), []byte("{}")))
	assert.NoError(t, pub.Close())

	cfg.Driver = broadcast.DriverKafkaGo
	pub, err = broadcast.NewPublisher(log, cfg)
	require.NoError(t, err)
	assert.NoError(t, pub.Close())

	cfg.Driver = "carrier-pigeon"
	_, err = broadcast.NewPublisher(log, cfg)
	assert.ErrorIs(t, err, broadcast.ErrUnknownDriver)
}
