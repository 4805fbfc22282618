package engine

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// instrumentation mirrors the teacher's storage-layer OTel wiring
// (internal/storage/dolt/store.go's doltMetrics/doltTracer): package-level
// instruments registered once against the global (no-op until configured)
// provider, so library users pay nothing unless a caller wires a real
// MeterProvider via internal/telemetry.
var metrics struct {
	mutations        metric.Int64Counter
	snapshotsWritten metric.Int64Counter
	deltasWritten    metric.Int64Counter
	blobBytes        metric.Int64Histogram
}

func init() {
	m := otel.Meter("github.com/rdfvault/revengine/engine")

	metrics.mutations, _ = m.Int64Counter("revengine.mutation.count",
		metric.WithDescription("Mutations accepted by the revision engine, by operation"),
		metric.WithUnit("{mutation}"),
	)
	metrics.snapshotsWritten, _ = m.Int64Counter("revengine.snapshot.written",
		metric.WithDescription("Changesets written as a SNAPSHOT"),
		metric.WithUnit("{changeset}"),
	)
	metrics.deltasWritten, _ = m.Int64Counter("revengine.delta.written",
		metric.WithDescription("Changesets written as a DELTA"),
		metric.WithUnit("{changeset}"),
	)
	metrics.blobBytes, _ = m.Int64Histogram("revengine.blob.compressed_bytes",
		metric.WithDescription("Compressed size of changeset blobs written"),
		metric.WithUnit("By"),
	)
}
