package domain

type JobKind string

const (
	JobTemplateExtraction JobKind = "template_extraction"
	JobExportReport       JobKind = "export_report"
)

// ImportJob is the payload handed to the background worker.
type ImportJob struct {
	Kind      JobKind `json:"kind"`
	SessionID string  `json:"session_id"`
}
