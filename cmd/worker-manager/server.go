package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"company-intel/internal/app"
	"company-intel/internal/common/camunda"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// readinessCheck reports whether one dependency can serve traffic.
type readinessCheck struct {
	name  string
	check func(context.Context) error
}

func readinessChecks(zeebe *camunda.Client, a *app.App) []readinessCheck {
	checks := []readinessCheck{{name: "zeebe", check: zeebe.HealthCheck}}
	if a.Redis != nil {
		checks = append(checks, readinessCheck{name: "redis", check: a.Redis.Ping})
	}
	if a.Postgres != nil {
		checks = append(checks, readinessCheck{name: "postgres", check: a.Postgres.Ping})
	}
	if a.Elastic != nil {
		checks = append(checks, readinessCheck{name: "elasticsearch", check: a.Elastic.Ping})
	}
	return checks
}

func newServerMux(checks []readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		failures := map[string]string{}
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				failures[c.name] = err.Error()
			}
		}
		if len(failures) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "not_ready",
				"failures": failures,
				"time":     time.Now().Format(time.RFC3339),
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
