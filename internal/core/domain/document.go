package domain

import "time"

type CategorizationStatus string

const (
	CategorizationUncategorized CategorizationStatus = "uncategorized"
	CategorizationCategorized   CategorizationStatus = "categorized"
	CategorizationSkipped       CategorizationStatus = "skipped"
)

type ValidationStatus string

const (
	ValidationPending      ValidationStatus = "pending"
	ValidationAccepted     ValidationStatus = "accepted"
	ValidationDeleted      ValidationStatus = "deleted"
	ValidationReclassified ValidationStatus = "reclassified"
)

// ExtractedDocument is one file pulled out of the PST archive. Rows are never
// physically deleted; "delete" during cluster review is a validation status.
type ExtractedDocument struct {
	ID                   string               `json:"id"`
	SessionID            string               `json:"session_id"`
	BatchID              string               `json:"batch_id,omitempty"`
	FileName             string               `json:"file_name"`
	FileExtension        string               `json:"file_extension"`
	FileSize             int64                `json:"file_size"`
	StoragePath          string               `json:"storage_path"`
	FolderPath           string               `json:"folder_path"`
	Sent                 bool                 `json:"sent"`
	ExtractedText        string               `json:"extracted_text,omitempty"`
	EmailSubject         string               `json:"email_subject,omitempty"`
	EmailSender          string               `json:"email_sender,omitempty"`
	EmailReceiver        string               `json:"email_receiver,omitempty"`
	EmailDate            *time.Time           `json:"email_date,omitempty"`
	CategoryID           string               `json:"category_id,omitempty"`
	CategorizationStatus CategorizationStatus `json:"categorization_status"`
	CategorizedBy        string               `json:"categorized_by,omitempty"`
	CategorizedAt        *time.Time           `json:"categorized_at,omitempty"`
	ClusterID            string               `json:"cluster_id,omitempty"`
	ValidationStatus     ValidationStatus     `json:"validation_status"`
	ValidatedBy          string               `json:"validated_by,omitempty"`
	ValidatedAt          *time.Time           `json:"validated_at,omitempty"`
	ReclassificationNote string               `json:"reclassification_note,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// DocumentValidationAction is a reviewer decision on a clustered document.
type DocumentValidationAction string

const (
	DocActionAccept     DocumentValidationAction = "accept"
	DocActionDelete     DocumentValidationAction = "delete"
	DocActionReclassify DocumentValidationAction = "reclassify"
)

// StatusFor maps a validation action to the resulting document status.
func (a DocumentValidationAction) StatusFor() (ValidationStatus, bool) {
	switch a {
	case DocActionAccept:
		return ValidationAccepted, true
	case DocActionDelete:
		return ValidationDeleted, true
	case DocActionReclassify:
		return ValidationReclassified, true
	default:
		return "", false
	}
}
