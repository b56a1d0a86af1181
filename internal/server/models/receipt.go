// Package models defines server-side data models persisted in the database.
package models

import "time"

// Receipt describes a stored receipt document. The bytes themselves live in
// the blob store under StorageKey; everything else lives in Postgres.
type Receipt struct {
	// ID is the opaque identifier handed to callers.
	ID string
	// Filename is the name supplied by the uploader, display only.
	Filename string
	// ContentType is the media type recorded at upload.
	ContentType string
	// Length is the number of bytes written to the blob store.
	Length int64
	// SHA256 is the hex digest of the content.
	SHA256 string
	// StorageKey is the blob store key. Never exposed on the wire.
	StorageKey string
	// UploaderID is the id of the authenticated user who created the receipt.
	UploaderID string
	// UploadDate is set by the store when the receipt is created.
	UploadDate time.Time
	// Metadata holds orderId and any other uploader-supplied fields.
	Metadata map[string]string
}
