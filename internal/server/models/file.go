package models

// Storage providers a File may live in.
const (
	ProviderBackblaze = "backblaze"
	// ProviderURL marks legacy records that only carry a direct url.
	ProviderURL = "url"
)

// Permission levels of a per-file grant.
const (
	LevelView  = "view"
	LevelEdit  = "edit"
	LevelAdmin = "admin"
)

// Permission grants a single user access to one resource.
type Permission struct {
	UserID string `json:"user_id"`
	Level  string `json:"level"`
}

// File is the metadata record of an uploaded object. FolderID nil means the
// tenant root.
type File struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	FolderID    *string      `json:"folder_id"`
	TenantID    string       `json:"tenant_id"`
	UploadedBy  string       `json:"uploaded_by"`
	Size        int64        `json:"size"`
	MimeType    string       `json:"mime_type"`
	StorageKey  string       `json:"storage_key"`
	B2FileName  string       `json:"b2_file_name,omitempty"`
	Provider    string       `json:"provider"`
	URL         string       `json:"url,omitempty"`
	CreatedAt   int64        `json:"created_at"`
	UpdatedAt   int64        `json:"updated_at"`
	IsDeleted   bool         `json:"is_deleted"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Folder has no is_deleted flag: deleting one removes the record outright.
type Folder struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parent_id"`
	TenantID  string  `json:"tenant_id"`
	CreatedBy string  `json:"created_by"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}
