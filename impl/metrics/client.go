package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// These are the metrics functions exposed by the package. By default they are all
// NOP functions to minimize overhead when metrics are not enabled. The
// 'addClientMetrics' function replaces them with functions having implementations.

var IncTokenRequests noLabel = func() {}
var IncManifestPulls withLabel = func(string) {}
var IncBlobPulls noLabel = func() {}
var AddBlobBytes delta = func(float64) {}
var IncLayersCompleted noLabel = func() {}
var IncLayersFailed withLabel = func(string) {}
var IncApiErrors withLabel = func(string) {}

type withLabel func(string)
type noLabel func()
type delta func(float64)

const (
	namespace              = "ociclient"
	token_requests_total   = "token_requests_total"
	manifest_pulls_total   = "manifest_pulls_total"
	blob_pulls_total       = "blob_pulls_total"
	blob_bytes_total       = "blob_bytes_total"
	layers_completed_total = "layers_completed_total"
	layers_failed_total    = "layers_failed_total"
	api_errors_total       = "api_errors_total"
	media_type_label       = "media_type"
	reason_label           = "reason"
	code_label             = "code"
)

// addClientMetrics creates all the client metrics, registers them with the passed
// registerer, and assigns the exposed hook functions. Unless this function is
// called, all the hooks exposed by the package are NOP functions.
func addClientMetrics(reg prometheus.Registerer) {
	factory := promauto.With(reg)

	tokenRequestsTotal := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      token_requests_total,
		Help:      "Total bearer token requests issued to token endpoints",
	})
	IncTokenRequests = func() {
		tokenRequestsTotal.Inc()
	}

	manifestPullsTotal := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      manifest_pulls_total,
		Help:      "Total manifests, manifest lists and configs retrieved, by media type",
	}, []string{media_type_label})
	IncManifestPulls = func(mediaType string) {
		manifestPullsTotal.With(prometheus.Labels{media_type_label: mediaType}).Inc()
	}

	blobPullsTotal := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      blob_pulls_total,
		Help:      "Total blob streams opened",
	})
	IncBlobPulls = func() {
		blobPullsTotal.Inc()
	}

	blobBytesTotal := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      blob_bytes_total,
		Help:      "Total blob bytes received",
	})
	AddBlobBytes = func(n float64) {
		blobBytesTotal.Add(n)
	}

	layersCompletedTotal := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      layers_completed_total,
		Help:      "Total layer downloads that completed",
	})
	IncLayersCompleted = func() {
		layersCompletedTotal.Inc()
	}

	layersFailedTotal := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      layers_failed_total,
		Help:      "Total layer downloads that failed or were cancelled, by reason",
	}, []string{reason_label})
	IncLayersFailed = func(reason string) {
		layersFailedTotal.With(prometheus.Labels{reason_label: reason}).Inc()
	}

	apiErrorsTotal := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      api_errors_total,
		Help:      "Total error responses received from registries, by error code",
	}, []string{code_label})
	IncApiErrors = func(code string) {
		apiErrorsTotal.With(prometheus.Labels{code_label: code}).Inc()
	}
}
