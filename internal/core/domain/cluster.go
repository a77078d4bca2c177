package domain

import "time"

type ClusterStatus string

const (
	ClusterPending  ClusterStatus = "pending"
	ClusterApproved ClusterStatus = "approved"
	ClusterRejected ClusterStatus = "rejected"
)

// MaxSampleDocuments caps the number of sample document ids kept per cluster.
const MaxSampleDocuments = 5

// TemplateMinClusterSize is the smallest approved cluster worth extracting a
// template from.
const TemplateMinClusterSize = 5

// DocumentCluster groups documents the clustering pass judged similar,
// awaiting human validation. "Delete" soft-deletes the row; merge physically
// removes absorbed source rows.
type DocumentCluster struct {
	ID                string        `json:"id"`
	SessionID         string        `json:"session_id"`
	SuggestedName     string        `json:"suggested_name"`
	SuggestedNameEn   string        `json:"suggested_name_en,omitempty"`
	Description       string        `json:"description,omitempty"`
	DocumentCount     int           `json:"document_count"`
	SampleDocumentIDs []string      `json:"sample_document_ids"`
	Status            ClusterStatus `json:"status"`
	ApprovedName      string        `json:"approved_name,omitempty"`
	ValidatedBy       string        `json:"validated_by,omitempty"`
	ValidatedAt       *time.Time    `json:"validated_at,omitempty"`
	IsDeleted         bool          `json:"is_deleted"`
	DeletedBy         string        `json:"deleted_by,omitempty"`
	DeletedAt         *time.Time    `json:"deleted_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// TemplateEligible reports whether the cluster qualifies for template
// extraction: approved, live, and large enough to be representative.
func (c *DocumentCluster) TemplateEligible() bool {
	return !c.IsDeleted && c.Status == ClusterApproved && c.DocumentCount >= TemplateMinClusterSize
}

// ClusterAction is a reviewer decision on a whole cluster.
type ClusterAction string

const (
	ClusterActionApprove ClusterAction = "approve"
	ClusterActionReject  ClusterAction = "reject"
	ClusterActionDelete  ClusterAction = "delete"
)

func (a ClusterAction) Valid() bool {
	switch a {
	case ClusterActionApprove, ClusterActionReject, ClusterActionDelete:
		return true
	default:
		return false
	}
}

// ClusterProposal is the clustering algorithm's raw output before persistence.
type ClusterProposal struct {
	SuggestedName     string
	SuggestedNameEn   string
	Description       string
	DocumentIDs       []string
	SampleDocumentIDs []string
}

// DocumentTemplate is the reusable skeleton extracted from an approved
// cluster's member documents.
type DocumentTemplate struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	ClusterID     string    `json:"cluster_id"`
	Name          string    `json:"name"`
	Body          string    `json:"body"`
	SourceCount   int       `json:"source_count"`
	CreatedAt     time.Time `json:"created_at"`
}
