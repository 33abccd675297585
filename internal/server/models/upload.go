package models

// Upload session states.
const (
	SessionStarted   = "started"
	SessionFinished  = "finished"
	SessionCancelled = "cancelled"
	SessionExpired   = "expired"
)

// UploadSession mirrors a provider-side multipart upload so abandoned ones
// can be found and aborted.
type UploadSession struct {
	FileID      string `json:"file_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	UserID      string `json:"user_id,omitempty"`
	TenantID    string `json:"tenant_id,omitempty"`
	Status      string `json:"status"`
	PartsIssued int    `json:"parts_issued"`
	StartedAt   int64  `json:"started_at"`
	UpdatedAt   int64  `json:"updated_at"`
}
