// Package exporters publishes job metrics over Prometheus scrape and SSE.
package exporters

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns the scrape endpoint for the default Prometheus
// registry, where all promauto-built job collectors live.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
