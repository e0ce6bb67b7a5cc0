package indexer

import (
	"encoding/json"
	"net/http"

	"github.com/akashx/akashx/pkg/rpc"
	"github.com/akashx/akashx/pkg/syncer"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Sync      syncer.Snapshot     `json:"sync"`
	Endpoints []rpc.EndpointStats `json:"endpoints"`
}

// NewRouter serves the probes, the sync status and the prometheus registry.
func NewRouter(status *syncer.Status, client rpc.Client, gatherer prometheus.Gatherer, ready func() bool) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })).Methods(http.MethodGet)
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if ready() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})).Methods(http.MethodGet)
	r.Handle("/status", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(StatusResponse{
			Sync:      status.Snapshot(),
			Endpoints: client.Stats(),
		})
	})).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}
