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

package metrics_test

import (
	"context"
	"testing"

	"code.vegaprotocol.io/fixmatch/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupIsIdempotent(t *testing.T) {
	require.NoError(t, metrics.Setup())
	require.NoError(t, metrics.Setup())

	// disabled config only registers
	require.NoError(t, metrics.Start(context.Background(), metrics.NewDefaultConfig()))

	metrics.OrderCounterInc("TEST", "LIMIT")
	metrics.TradesAdd("TEST", 2, 8)
	metrics.StartMatchingTimer("TEST", "SubmitOrder")()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["fixmatch_matching_orders_total"])
	assert.True(t, names["fixmatch_matching_trades_total"])
	assert.True(t, names["fixmatch_matching_submit_duration_seconds"])
}

func TestAddInstrumentUnsupported(t *testing.T) {
	_, err := metrics.AddInstrument(metrics.Gauge+100, "nope")
	assert.ErrorIs(t, err, metrics.ErrInstrumentNotSupported)
}

func TestInstrumentTypeMismatch(t *testing.T) {
	m, err := metrics.AddInstrument(metrics.Counter, "mismatch_total", metrics.Namespace("fixmatch_test"))
	require.NoError(t, err)
	_, err = m.Gauge()
	assert.ErrorIs(t, err, metrics.ErrInstrumentTypeMismatch)
	c, err := m.Counter()
	require.NoError(t, err)
	c.Inc()
}
