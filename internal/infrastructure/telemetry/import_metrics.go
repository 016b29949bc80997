package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for import metrics
const MeterName = "github.com/catalogsync/backend/import"

var productDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// ImportMetrics records batch, product and image outcomes
type ImportMetrics struct {
	batches         *Counter
	products        *Counter
	images          *Counter
	productDuration *Histogram
}

// NewImportMetrics registers the import instruments on meter
func NewImportMetrics(meter metric.Meter) (*ImportMetrics, error) {
	batches, err := NewCounter(meter, "import_batches_total", "Finished import batches by final status", "{batch}")
	if err != nil {
		return nil, err
	}
	products, err := NewCounter(meter, "import_products_total", "Processed products by outcome", "{product}")
	if err != nil {
		return nil, err
	}
	images, err := NewCounter(meter, "import_images_total", "Image uploads by outcome", "{image}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, "import_product_duration_seconds", "Time to push one product", "s", productDurationBuckets)
	if err != nil {
		return nil, err
	}
	return &ImportMetrics{
		batches:         batches,
		products:        products,
		images:          images,
		productDuration: duration,
	}, nil
}

// BatchFinished counts a batch reaching status
func (m *ImportMetrics) BatchFinished(ctx context.Context, status string) {
	m.batches.Inc(ctx, attribute.String("status", status))
}

// ProductProcessed counts one product and records how long it took
func (m *ImportMetrics) ProductProcessed(ctx context.Context, status string, d time.Duration) {
	attrs := attribute.String("status", status)
	m.products.Inc(ctx, attrs)
	m.productDuration.RecordDuration(ctx, d, attrs)
}

// ImageUploaded counts one image upload attempt
func (m *ImportMetrics) ImageUploaded(ctx context.Context, outcome string) {
	m.images.Inc(ctx, attribute.String("outcome", outcome))
}
