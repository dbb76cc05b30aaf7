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
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"code.vegaprotocol.io/fixmatch/logging"
	"code.vegaprotocol.io/fixmatch/metrics"
)

type remoteAddrKey struct{}

// RemoteAddr returns the caller address stored by RemoteAddrMiddleware.
func RemoteAddr(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(remoteAddrKey{}).(string)
	return ip, ok
}

// RemoteAddrMiddleware is a middleware adding to the current request context the
// address of the caller.
func RemoteAddrMiddleware(log *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil || net.ParseIP(ip) == nil {
			log.Warn("remote address is not IP:port format in middleware",
				logging.String("remote-addr", r.RemoteAddr))
			next.ServeHTTP(w, r)
			return
		}
		// Only defined when site is accessed via non-anonymous proxy
		// and takes precedence over RemoteAddr
		if forward := r.Header.Get("X-Forwarded-For"); forward != "" {
			ip = strings.TrimSpace(strings.Split(forward, ",")[0])
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), remoteAddrKey{}, ip)))
	})
}

// MetricCollectionMiddleware records the request and the time taken to service it.
func MetricCollectionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		metrics.APIRequestAndTimeREST(routeOf(r.URL.Path), time.Since(start).Seconds())
	})
}

// routeOf keeps the resource of /api/v1/<resource>/..., ids would blow up
// the label cardinality.
func routeOf(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "api" {
		return parts[2]
	}
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "root"
}
