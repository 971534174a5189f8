package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cognicore/phrasefind/pkg/phrasefind/matcher"
)

// healthStatus mirrors the wider corpus's pkg/health status vocabulary
// (up/down/degraded), narrowed to the daemon's single registered component.
type healthStatus string

const (
	statusUp   healthStatus = "up"
	statusDown healthStatus = "down"
)

type componentHealth struct {
	Status  healthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

type healthReport struct {
	Status     healthStatus               `json:"status"`
	Components map[string]componentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// HealthHandler runs the daemon's single registered check — that the loaded
// matcher.Handle has a non-empty artifact set — and reports it in the wider
// corpus's up/down health-report shape (SPEC_FULL §4.4, "backed by the
// health-checker idiom... register a named check, run it, aggregate
// up/down/degraded").
func HealthHandler(handle *matcher.Handle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := healthReport{
			Status:     statusUp,
			Components: map[string]componentHealth{},
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}

		comp := componentHealth{Status: statusUp}
		if err := handle.Healthcheck(); err != nil {
			comp = componentHealth{Status: statusDown, Message: err.Error()}
			report.Status = statusDown
		}
		report.Components["matcher"] = comp

		w.Header().Set("Content-Type", "application/json")
		if report.Status == statusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
