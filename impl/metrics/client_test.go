package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNopByDefault(t *testing.T) {
	// must not panic before registration
	IncBlobPulls()
	AddBlobBytes(10)
	IncApiErrors("UNKNOWN")
}

func TestClientMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	addClientMetrics(reg)
	IncBlobPulls()
	IncBlobPulls()
	AddBlobBytes(1024)
	IncLayersFailed("cancelled")
	IncManifestPulls("application/vnd.docker.distribution.manifest.v2+json")

	expected := map[string]int{
		"ociclient_blob_pulls_total":     1,
		"ociclient_blob_bytes_total":     1,
		"ociclient_layers_failed_total":  1,
		"ociclient_manifest_pulls_total": 1,
	}
	for name, cnt := range expected {
		if n, err := testutil.GatherAndCount(reg, name); err != nil || n != cnt {
			t.Fatalf("metric %s: expected %d series got %d (%v)", name, cnt, n, err)
		}
	}
}
