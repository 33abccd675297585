package models

import (
	"encoding/json"
	"time"
)

// Item kinds held in the trash.
const (
	ItemTypeFile   = "file"
	ItemTypeFolder = "folder"
)

// TrashRetention is how long a trash record lives before the sweeper purges it.
const TrashRetention = 30 * 24 * time.Hour

// rootSentinel is how the root location is persisted in original_path.
const rootSentinel = "null"

// ParentRef is the folder an item lived in. The zero value is the tenant root.
//
// On the wire the root is the string "null", not a JSON null, so documents
// written by earlier clients stay readable.
type ParentRef struct {
	id string
}

// Root returns the reference to the tenant root.
func Root() ParentRef { return ParentRef{} }

// ParentOf converts a nullable folder id into a ParentRef.
func ParentOf(folderID *string) ParentRef {
	if folderID == nil {
		return ParentRef{}
	}
	return ParseParentRef(*folderID)
}

// ParseParentRef reads a stored or user-supplied location; "" and "null" are the root.
func ParseParentRef(s string) ParentRef {
	if s == rootSentinel {
		return ParentRef{}
	}
	return ParentRef{id: s}
}

func (p ParentRef) IsRoot() bool { return p.id == "" }

// FolderID returns nil for the root.
func (p ParentRef) FolderID() *string {
	if p.IsRoot() {
		return nil
	}
	id := p.id
	return &id
}

func (p ParentRef) String() string {
	if p.IsRoot() {
		return rootSentinel
	}
	return p.id
}

func (p ParentRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *ParentRef) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*p = ParentRef{}
		return nil
	}
	*p = ParseParentRef(*s)
	return nil
}

// DeletedItem is a trash record. ItemName is a snapshot taken at deletion.
type DeletedItem struct {
	ID           string    `json:"id"`
	ItemType     string    `json:"item_type"`
	ItemID       string    `json:"item_id"`
	ItemName     string    `json:"item_name"`
	OriginalPath ParentRef `json:"original_path"`
	TenantID     string    `json:"tenant_id"`
	DeletedBy    string    `json:"deleted_by"`
	DeletedAt    int64     `json:"deleted_at"`
	ExpiresAt    int64     `json:"expires_at"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type"`
}

// ExpiresAt returns the expiry timestamp of an item deleted at deletedAt.
func ExpiresAt(deletedAt int64) int64 {
	return deletedAt + TrashRetention.Milliseconds()
}
