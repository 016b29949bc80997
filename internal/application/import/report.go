package importapp

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/catalogsync/backend/internal/domain/bulk"
)

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate = template.Must(
	template.New("completion_report.html").
		Funcs(template.FuncMap{
			"formatDateTime": formatDateTime,
			"truncate":       truncateText,
		}).
		ParseFS(templateFS, "templates/completion_report.html"),
)

type reportData struct {
	FileName    string
	Status      bulk.BatchStatus
	Error       string
	Summary     bulk.Summary
	CompletedAt *time.Time
	Failures    []bulk.ProductResult
}

// ReportSubject returns the completion mail subject for a finished batch
func ReportSubject(batch *bulk.ImportBatch) string {
	return fmt.Sprintf("Import %s %s", batch.FileName, batch.Status)
}

// RenderReport renders the completion mail body for a finished batch
func RenderReport(batch *bulk.ImportBatch) (string, error) {
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, reportData{
		FileName:    batch.FileName,
		Status:      batch.Status,
		Error:       batch.Error,
		Summary:     batch.Summary,
		CompletedAt: batch.CompletedAt,
		Failures:    batch.FailedResults(),
	})
	if err != nil {
		return "", fmt.Errorf("render completion report: %w", err)
	}
	return buf.String(), nil
}

func formatDateTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}

func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
