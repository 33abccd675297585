package models

// Operation kinds.
const (
	OpSoftDelete   = "soft_delete"
	OpFinishUpload = "finish_upload"
	OpRestore      = "restore"
)

// Operation states.
const (
	OpPending   = "pending"
	OpCompleted = "completed"
	OpFailed    = "failed"
)

// Operation records the completed steps of a multi-step write so partial
// failures can be found and repaired.
type Operation struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	TenantID  string   `json:"tenant_id"`
	UserID    string   `json:"user_id"`
	ItemID    string   `json:"item_id"`
	Steps     []string `json:"steps"`
	Status    string   `json:"status"`
	Error     string   `json:"error,omitempty"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
}

// Activity is one audit log entry.
type Activity struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Action   string `json:"action"`
	ItemType string `json:"item_type"`
	ItemID   string `json:"item_id"`
	At       int64  `json:"at"`
}
