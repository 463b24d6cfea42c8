package api

import (
	"net/http"

	"github.com/sabio-ai/sabio/internal/log"
)

// health is a liveness probe for Docker/Kubernetes.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness reports whether the server can take traffic. The service is
// stateless apart from startup configuration, so readiness follows
// liveness once the process is up.
func readiness(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"}, logger)
	}
}
