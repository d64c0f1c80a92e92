// Package connector defines the external-source client contract and a
// Google Drive implementation, grounded on the original GoogleDriveClient:
// paginated file listing, a Changes-API-style delta cursor, streaming
// download through pkg/resilience's size-capped hasher, and a permanent
// vs. transient error split that the sync engine uses to decide whether a
// failure should mark a source ERROR or simply be retried next run.
package connector

import (
	"context"
	"fmt"
	"time"
)

const ProviderGoogleDrive = "google_drive"

// File is the metadata the sync engine needs to decide CREATE/UPDATE/SKIP.
type File struct {
	FileID       string
	Name         string
	MimeType     string
	ModifiedTime *time.Time
	Etag         string
}

// Delta is one incremental listing plus the cursor to resume from next time.
type Delta struct {
	Files     []File
	NewCursor string
}

// PermanentError means retrying will not help: invalid credentials, the
// folder no longer exists, or a malformed request.
type PermanentError struct {
	Message    string
	StatusCode int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("connector: permanent error (status %d): %s", e.StatusCode, e.Message)
}

// TransientError means the same request may succeed on retry: rate limits,
// 5xx responses, or a dropped connection.
type TransientError struct {
	Message    string
	StatusCode int
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("connector: transient error (status %d): %s", e.StatusCode, e.Message)
}

// FileTooLargeError means the provider reports (or streams past) a size
// the resilience layer's download cap will not allow.
type FileTooLargeError struct {
	SizeBytes int64
	MaxBytes  int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("connector: file too large (%d bytes, max %d)", e.SizeBytes, e.MaxBytes)
}

// Client is the provider-agnostic contract the sync engine depends on.
// A concrete implementation (e.g. *DriveClient) binds it to one OAuth
// access token for the lifetime of a single sync run.
type Client interface {
	IsSupportedMimeType(mimeType string) bool
	FetchFileContent(ctx context.Context, fileID, mimeType string) (content []byte, sha256Hex string, err error)
	GetDelta(ctx context.Context, folderID, cursor string) (Delta, error)
}

// ClientFactory builds a Client bound to one access token. The sync engine
// never constructs a provider client directly so it stays provider-agnostic.
type ClientFactory func(accessToken string) Client

var supportedDirectMimes = map[string]bool{
	"text/plain":       true,
	"text/csv":         true,
	"text/markdown":    true,
	"application/pdf":  true,
	"application/json": true,
}

// googleExportMimes maps native Google Workspace mimes (Docs, Sheets,
// Slides) to the plain-text/CSV export format Drive will convert them to
// on download, since those formats have no native byte representation.
var googleExportMimes = map[string]string{
	"application/vnd.google-apps.document":     "text/plain",
	"application/vnd.google-apps.spreadsheet":  "text/csv",
	"application/vnd.google-apps.presentation": "text/plain",
}
