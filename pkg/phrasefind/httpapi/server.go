package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cognicore/phrasefind/pkg/phrasefind/internalerr"
	"github.com/cognicore/phrasefind/pkg/phrasefind/matcher"
)

type matchRequest struct {
	Tokens   []string `json:"tokens"`
	Policy   string   `json:"policy,omitempty"`
	MaxSpans int      `json:"max_spans,omitempty"`
}

type matchResponse struct {
	Spans []matcher.Result `json:"spans"`
}

// Config controls the route table's optional path overrides and the
// match endpoint's request defaults (SPEC_FULL §6, "Matcher daemon config").
type Config struct {
	MetricsPath   string
	HealthPath    string
	DefaultPolicy string
	MaxSpans      int
}

// NewMux assembles the daemon's route table: a JSON match endpoint, the
// Prometheus scrape endpoint, and the health endpoint, all wrapped in the
// request-ID and access-log middleware.
func NewMux(handle *matcher.Handle, metrics *Metrics, cfg Config) http.Handler {
	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	healthPath := cfg.HealthPath
	if healthPath == "" {
		healthPath = "/healthz"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/match", matchHandler(handle, cfg))
	mux.Handle("GET "+metricsPath, metrics.Handler())
	mux.HandleFunc("GET "+healthPath, HealthHandler(handle))

	var h http.Handler = mux
	h = AccessLog(h)
	h = RequestID(h)
	return h
}

func matchHandler(handle *matcher.Handle, cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"malformed request body"}`, http.StatusBadRequest)
			return
		}

		policy := matcher.Policy(req.Policy)
		if policy == "" {
			policy = matcher.Policy(cfg.DefaultPolicy)
		}
		maxSpans := req.MaxSpans
		if maxSpans == 0 {
			maxSpans = cfg.MaxSpans
		}

		results, err := handle.MatchTextTokens(req.Tokens, policy, maxSpans)
		if err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, internalerr.ErrInvalidConfig) {
				status = http.StatusBadRequest
			}
			http.Error(w, `{"error":"`+err.Error()+`"}`, status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(matchResponse{Spans: results})
	}
}
