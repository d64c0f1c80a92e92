// Package sync is the update-aware external-source sync engine: it pulls a
// delta listing from a connector.Client, classifies each file as a new
// document, a changed document, or an unchanged one to skip, and leaves
// newly-created or updated documents PENDING for the ingestion pipeline to
// pick up. Grounded on SyncConnectorSourceUseCase (sync_connector_source.py):
// same validate-source -> refresh-token -> acquire-CAS-lock -> delta-sync ->
// per-file classify -> cursor/status bookkeeping shape, translated from its
// dataclass-based use case into a Go struct with injected collaborators.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/SaintWyss/rag-corp-sub001/pkg/connector"
	"github.com/SaintWyss/rag-corp-sub001/pkg/logging"
	"github.com/SaintWyss/rag-corp-sub001/pkg/metrics"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// maxFilesPerSync is the safety cap on how many files one sync run
// processes, regardless of how many the delta reports.
const maxFilesPerSync = 100

type Action string

const (
	ActionCreate          Action = "CREATE"
	ActionUpdate          Action = "UPDATE"
	ActionSkipUnchanged   Action = "SKIP_UNCHANGED"
	ActionSkipUnsupported Action = "SKIP_UNSUPPORTED"
	ActionSkipEmpty       Action = "SKIP_EMPTY"
	ActionError           Action = "ERROR"
)

type Stats struct {
	FilesFound   int
	FilesCreated int
	FilesUpdated int
	FilesSkipped int
	FilesErrored int
}

type SourceStore interface {
	GetSourceByID(ctx context.Context, id, workspaceID int64) (*model.ConnectorSource, error)
	TryAcquireSyncLock(ctx context.Context, id int64) (bool, error)
	SetStatus(ctx context.Context, id int64, status model.ConnectorSourceStatus) error
	SetCursor(ctx context.Context, id int64, cursorJSON string) error
}

type AccountStore interface {
	GetAccount(ctx context.Context, workspaceID int64, provider string) (*model.ConnectorAccount, error)
}

// DocumentStore is the subset of pkg/database's document/chunk facades the
// sync engine needs to create, update, and re-chunk synced documents.
type DocumentStore interface {
	GetByExternalSourceID(ctx context.Context, workspaceID int64, externalID string) (*model.Document, error)
	Save(ctx context.Context, doc *model.Document) error
	DeleteChunksForDocument(ctx context.Context, documentID, workspaceID int64) error
	UpdateExternalSourceMetadata(ctx context.Context, id int64, provider, externalID, etag string, modifiedTime *time.Time) error
}

// TokenEncryptor decrypts a connector account's stored refresh token.
type TokenEncryptor interface {
	Decrypt(ciphertext []byte) (string, error)
}

// OAuthRefresher mints a fresh access token from a refresh token.
type OAuthRefresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
}

type Engine struct {
	sources       SourceStore
	accounts      AccountStore
	docs          DocumentStore
	encryptor     TokenEncryptor
	oauth         OAuthRefresher
	clientFactory connector.ClientFactory
}

func NewEngine(sources SourceStore, accounts AccountStore, docs DocumentStore, encryptor TokenEncryptor, oauth OAuthRefresher, clientFactory connector.ClientFactory) *Engine {
	return &Engine{
		sources:       sources,
		accounts:      accounts,
		docs:          docs,
		encryptor:     encryptor,
		oauth:         oauth,
		clientFactory: clientFactory,
	}
}

// Sync runs one delta-sync pass for a single connector source. A locked
// source (another run already in flight) is not an error: it returns a
// zero Stats so the caller can log it as a no-op.
func (e *Engine) Sync(ctx context.Context, workspaceID, sourceID int64) (Stats, error) {
	source, err := e.sources.GetSourceByID(ctx, sourceID, workspaceID)
	if err != nil {
		return Stats{}, fmt.Errorf("sync: load source: %w", err)
	}

	account, err := e.accounts.GetAccount(ctx, workspaceID, source.Provider)
	if err != nil {
		return Stats{}, fmt.Errorf("sync: no connector account for workspace: %w", err)
	}

	refreshToken, err := e.encryptor.Decrypt(account.EncryptedRefreshToken)
	if err != nil {
		_ = e.sources.SetStatus(ctx, sourceID, model.ConnectorError)
		return Stats{}, fmt.Errorf("sync: decrypt refresh token: %w", err)
	}
	accessToken, err := e.oauth.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		_ = e.sources.SetStatus(ctx, sourceID, model.ConnectorError)
		return Stats{}, fmt.Errorf("sync: refresh access token: %w", err)
	}

	client := e.clientFactory(accessToken)

	locked, err := e.sources.TryAcquireSyncLock(ctx, sourceID)
	if err != nil {
		return Stats{}, fmt.Errorf("sync: acquire lock: %w", err)
	}
	if !locked {
		metrics.SyncLocked.Inc()
		logging.With(logging.Fields{"source_id": sourceID, "workspace_id": workspaceID}).
			Info("sync skipped: already syncing")
		return Stats{}, nil
	}

	delta, err := client.GetDelta(ctx, source.FolderID, source.CursorJSON)
	if err != nil {
		_ = e.sources.SetStatus(ctx, sourceID, model.ConnectorError)
		return Stats{}, fmt.Errorf("sync: get delta: %w", err)
	}

	files := delta.Files
	if len(files) > maxFilesPerSync {
		logging.Warnf("sync: source %d reported %d files, capping at %d", sourceID, len(files), maxFilesPerSync)
		files = files[:maxFilesPerSync]
	}

	stats := Stats{FilesFound: len(delta.Files)}
	for _, file := range files {
		action := e.processFile(ctx, workspaceID, sourceID, file, client)
		switch action {
		case ActionCreate:
			stats.FilesCreated++
		case ActionUpdate:
			stats.FilesUpdated++
		case ActionSkipUnchanged, ActionSkipUnsupported, ActionSkipEmpty:
			stats.FilesSkipped++
		case ActionError:
			stats.FilesErrored++
		}
	}

	if delta.NewCursor != "" {
		_ = e.sources.SetCursor(ctx, sourceID, delta.NewCursor)
	}

	finalStatus := model.ConnectorActive
	if stats.FilesErrored > 0 && stats.FilesCreated == 0 && stats.FilesUpdated == 0 {
		finalStatus = model.ConnectorError
	}
	if err := e.sources.SetStatus(ctx, sourceID, finalStatus); err != nil {
		return stats, fmt.Errorf("sync: set final status: %w", err)
	}

	logging.With(logging.Fields{
		"source_id": sourceID, "workspace_id": workspaceID,
		"found": stats.FilesFound, "created": stats.FilesCreated,
		"updated": stats.FilesUpdated, "skipped": stats.FilesSkipped, "errored": stats.FilesErrored,
	}).Info("sync completed")

	return stats, nil
}

func (e *Engine) processFile(ctx context.Context, workspaceID, sourceID int64, file connector.File, client connector.Client) Action {
	if !client.IsSupportedMimeType(file.MimeType) {
		return ActionSkipUnsupported
	}

	externalID := fmt.Sprintf("gdrive:%s", file.FileID)
	existing, err := e.docs.GetByExternalSourceID(ctx, workspaceID, externalID)
	if err == nil && existing != nil {
		if !fileHasChanged(existing, file) {
			return ActionSkipUnchanged
		}
		return e.updateDocument(ctx, workspaceID, sourceID, existing, file, client)
	}
	return e.createDocument(ctx, workspaceID, sourceID, file, externalID, client)
}

// fileHasChanged prefers etag comparison (content checksum), falling back
// to modified_time, and assumes a change when neither is available —
// re-ingesting an unchanged file is wasted work, missing a real change is
// a silent staleness bug, so it errs toward re-ingesting.
func fileHasChanged(doc *model.Document, file connector.File) bool {
	if doc.Etag != "" && file.Etag != "" {
		return doc.Etag != file.Etag
	}
	if doc.ModifiedTime != nil && file.ModifiedTime != nil {
		return !doc.ModifiedTime.Truncate(time.Second).Equal(file.ModifiedTime.Truncate(time.Second))
	}
	return true
}

func (e *Engine) createDocument(ctx context.Context, workspaceID, sourceID int64, file connector.File, externalID string, client connector.Client) Action {
	content, checksum, err := client.FetchFileContent(ctx, file.FileID, file.MimeType)
	if err != nil {
		logging.Warnf("sync: download failed for file %s: %v", file.FileID, err)
		if _, ok := err.(*connector.FileTooLargeError); ok {
			return ActionSkipUnsupported
		}
		return ActionError
	}
	if len(content) == 0 {
		return ActionSkipEmpty
	}

	doc := &model.Document{
		WorkspaceID:  workspaceID,
		Title:        file.Name,
		Source:       fmt.Sprintf("google_drive:%d", sourceID),
		MimeType:     file.MimeType,
		Status:       model.DocumentPending,
		Provider:     connector.ProviderGoogleDrive,
		ExternalID:   externalID,
		ModifiedTime: file.ModifiedTime,
		Etag:         file.Etag,
		ContentHash:  checksum,
		Metadata: model.JSONMap{
			"connector_source_id": sourceID,
			"drive_file_id":       file.FileID,
			"drive_mime_type":     file.MimeType,
		},
	}
	if err := e.docs.Save(ctx, doc); err != nil {
		logging.Warnf("sync: save new document failed for file %s: %v", file.FileID, err)
		return ActionError
	}
	return ActionCreate
}

func (e *Engine) updateDocument(ctx context.Context, workspaceID, sourceID int64, existing *model.Document, file connector.File, client connector.Client) Action {
	content, checksum, err := client.FetchFileContent(ctx, file.FileID, file.MimeType)
	if err != nil {
		logging.Warnf("sync: download failed during update for file %s: %v", file.FileID, err)
		if _, ok := err.(*connector.FileTooLargeError); ok {
			return ActionSkipUnsupported
		}
		return ActionError
	}
	if len(content) == 0 {
		return ActionSkipEmpty
	}

	if err := e.docs.DeleteChunksForDocument(ctx, existing.ID, workspaceID); err != nil {
		logging.Warnf("sync: delete prior chunks failed for document %d: %v", existing.ID, err)
	}

	existing.Title = file.Name
	existing.ModifiedTime = file.ModifiedTime
	existing.Etag = file.Etag
	existing.ContentHash = checksum
	existing.Status = model.DocumentPending
	if err := e.docs.Save(ctx, existing); err != nil {
		logging.Warnf("sync: save updated document failed for document %d: %v", existing.ID, err)
		return ActionError
	}
	if err := e.docs.UpdateExternalSourceMetadata(ctx, existing.ID, connector.ProviderGoogleDrive, existing.ExternalID, file.Etag, file.ModifiedTime); err != nil {
		logging.Warnf("sync: update external metadata failed for document %d: %v", existing.ID, err)
	}
	return ActionUpdate
}
