package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Upload outcomes recorded on imgpaste.uploads
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected" // failed validation, never reached storage
	OutcomeFailed   = "failed"   // storage reported a failure
)

// UploadMetrics records upload counts and payload sizes
type UploadMetrics struct {
	uploads metric.Int64Counter
	bytes   metric.Int64Histogram
}

// NewUploadMetrics registers upload instruments on the global meter provider.
// With telemetry disabled the global provider is a no-op.
func NewUploadMetrics() (*UploadMetrics, error) {
	meter := otel.Meter(TracerName)

	uploads, err := meter.Int64Counter("imgpaste.uploads",
		metric.WithDescription("Image uploads by outcome"),
	)
	if err != nil {
		return nil, err
	}

	bytes, err := meter.Int64Histogram("imgpaste.upload.bytes",
		metric.WithDescription("Size of uploaded images"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &UploadMetrics{uploads: uploads, bytes: bytes}, nil
}

// Record counts one upload attempt. size is only recorded for successful uploads.
func (m *UploadMetrics) Record(ctx context.Context, outcome, mimeType string, size int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("mime_type", mimeType),
	)
	m.uploads.Add(ctx, 1, attrs)
	if outcome == OutcomeSuccess {
		m.bytes.Record(ctx, size, metric.WithAttributes(attribute.String("mime_type", mimeType)))
	}
}
