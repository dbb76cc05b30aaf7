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

package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"code.vegaprotocol.io/fixmatch/logging"

	"github.com/stretchr/testify/assert"
)

func TestRouteOf(t *testing.T) {
	assert.Equal(t, "orders", routeOf("/api/v1/orders/42"))
	assert.Equal(t, "book", routeOf("/api/v1/book"))
	assert.Equal(t, "metrics", routeOf("/metrics"))
	assert.Equal(t, "root", routeOf("/"))
}

func TestRemoteAddrMiddleware(t *testing.T) {
	var got string
	h := RemoteAddrMiddleware(logging.NewTestLogger(), http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = RemoteAddr(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/book", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.0.0.1", got)

	req.Header.Set("X-Forwarded-For", "192.168.1.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "192.168.1.7", got)

	got = ""
	req = httptest.NewRequest(http.MethodGet, "/api/v1/book", nil)
	req.RemoteAddr = "pipe"
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Empty(t, got)
}
