// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	stakingapi "github.com/stakemesh/stakemesh/api/staking"
	"github.com/stakemesh/stakemesh/eventdb"
	"github.com/stakemesh/stakemesh/staking"
)

// Options tunes the http surface.
type Options struct {
	AllowedOrigins string
	PprofOn        bool
	EnableMetrics  bool
}

// New returns the api handler. The journal, persist hook and clock may be
// nil; see the staking resource for their defaults.
func New(
	staker *staking.Staker,
	journal *eventdb.EventDB,
	now func() uint64,
	persist func() error,
	opts Options,
) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	stakingapi.New(staker, journal, now, persist).
		Mount(router, "/staking")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)
	return handler.ServeHTTP
}
