package model

import "time"

// File is a logical upload as seen by callers. Several files may point at the
// same stored object when their content is identical; the object is the unit
// of physical storage, the file is the unit of sharing.
type File struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredObject is one physical blob in permanent storage, keyed by the
// sha256 of its content. For a given ContentHash at most one object exists.
type StoredObject struct {
	ContentHash string    `json:"content_hash"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// FinishedFile is handed to downstream processing (thumbnailing, metadata
// extraction) once an upload has been committed to permanent storage.
type FinishedFile struct {
	FileID       string `json:"file_id"`
	Filename     string `json:"filename"`
	ContentType  string `json:"content_type"`
	ContentHash  string `json:"content_hash"`
	StoragePath  string `json:"storage_path"`
	Size         int64  `json:"size"`
	Deduplicated bool   `json:"deduplicated"`
}
