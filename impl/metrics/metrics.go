// Package metrics exposes client-side pull metrics to Prometheus. Metrics are
// opt-in: until InitMetrics is called with a non-zero port every hook in the
// package is a NOP function so the pull path pays nothing for them.
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var once sync.Once

// InitMetrics initializes metrics. If the passed port is zero, no action is taken.
// Otherwise, the function creates the go runtime and client metrics, registers them
// for availability at the passed port number under the '/metrics' path, and starts
// an HTTP server in a goroutine to serve them.
func InitMetrics(port int) {
	if port == 0 {
		return
	}
	once.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		addClientMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
				log.Errorf("metrics server stopped: %s", err)
			}
		}()
		log.Infof("serving metrics on port %d", port)
	})
}
