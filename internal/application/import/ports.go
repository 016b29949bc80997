package importapp

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Mailer delivers the completion report to the batch owner
type Mailer interface {
	SendHTML(ctx context.Context, to, subject, body string) error
}

// PayloadArchive keeps uploaded spreadsheets after the batch row drops them
type PayloadArchive interface {
	// ArchivePayload stores data and returns its object key
	ArchivePayload(ctx context.Context, ownerID, batchID uuid.UUID, fileName string, data []byte) (string, error)

	// DownloadURL returns a time-limited link to an archived payload
	DownloadURL(ctx context.Context, key string) (string, time.Time, error)
}

// Metrics receives pipeline outcomes. telemetry.ImportMetrics implements it.
type Metrics interface {
	BatchFinished(ctx context.Context, status string)
	ProductProcessed(ctx context.Context, status string, d time.Duration)
	ImageUploaded(ctx context.Context, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) BatchFinished(context.Context, string)                   {}
func (noopMetrics) ProductProcessed(context.Context, string, time.Duration) {}
func (noopMetrics) ImageUploaded(context.Context, string)                   {}
