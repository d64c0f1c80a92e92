package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaintWyss/rag-corp-sub001/pkg/connector"
	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

type fakeSourceStore struct {
	source *model.ConnectorSource
	locked bool
}

func (f *fakeSourceStore) GetSourceByID(ctx context.Context, id, workspaceID int64) (*model.ConnectorSource, error) {
	cp := *f.source
	return &cp, nil
}

func (f *fakeSourceStore) TryAcquireSyncLock(ctx context.Context, id int64) (bool, error) {
	if f.locked {
		return false, nil
	}
	f.locked = true
	return true, nil
}

func (f *fakeSourceStore) SetStatus(ctx context.Context, id int64, status model.ConnectorSourceStatus) error {
	f.source.Status = status
	return nil
}

func (f *fakeSourceStore) SetCursor(ctx context.Context, id int64, cursorJSON string) error {
	f.source.CursorJSON = cursorJSON
	return nil
}

type fakeAccountStore struct{ account *model.ConnectorAccount }

func (f *fakeAccountStore) GetAccount(ctx context.Context, workspaceID int64, provider string) (*model.ConnectorAccount, error) {
	return f.account, nil
}

type fakeDocStore struct {
	byExternal map[string]*model.Document
	nextID     int64
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{byExternal: map[string]*model.Document{}, nextID: 100}
}

func (f *fakeDocStore) GetByExternalSourceID(ctx context.Context, workspaceID int64, externalID string) (*model.Document, error) {
	d, ok := f.byExternal[externalID]
	if !ok {
		return nil, assertNotFound{}
	}
	return d, nil
}

type assertNotFound struct{}

func (assertNotFound) Error() string { return "not found" }

func (f *fakeDocStore) Save(ctx context.Context, doc *model.Document) error {
	if doc.ID == 0 {
		f.nextID++
		doc.ID = f.nextID
	}
	f.byExternal[doc.ExternalID] = doc
	return nil
}

func (f *fakeDocStore) DeleteChunksForDocument(ctx context.Context, documentID, workspaceID int64) error {
	return nil
}

func (f *fakeDocStore) UpdateExternalSourceMetadata(ctx context.Context, id int64, provider, externalID, etag string, modifiedTime *time.Time) error {
	return nil
}

type fakeEncryptor struct{}

func (fakeEncryptor) Decrypt(ciphertext []byte) (string, error) { return "refresh-token", nil }

type fakeOAuth struct{}

func (fakeOAuth) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	return "access-token", nil
}

func TestEngine_Sync_CreatesNewFile(t *testing.T) {
	source := &model.ConnectorSource{ID: 1, WorkspaceID: 10, Provider: connector.ProviderGoogleDrive, FolderID: "folder-1"}
	sources := &fakeSourceStore{source: source}
	accounts := &fakeAccountStore{account: &model.ConnectorAccount{ID: 1, WorkspaceID: 10, Provider: connector.ProviderGoogleDrive}}
	docs := newFakeDocStore()

	delta := connector.Delta{
		Files:     []connector.File{{FileID: "f1", Name: "doc.txt", MimeType: "text/plain"}},
		NewCursor: "cursor-2",
	}
	factory := connector.NewFakeClientFactory(delta, map[string][]byte{"f1": []byte("hello world")})

	engine := NewEngine(sources, accounts, docs, fakeEncryptor{}, fakeOAuth{}, factory)

	stats, err := engine.Sync(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesCreated)
	assert.Equal(t, 0, stats.FilesErrored)
	assert.Equal(t, "cursor-2", source.CursorJSON)
	assert.Equal(t, model.ConnectorActive, source.Status)
	assert.Len(t, docs.byExternal, 1)
}

func TestEngine_Sync_SkipsUnchangedFile(t *testing.T) {
	source := &model.ConnectorSource{ID: 2, WorkspaceID: 10, Provider: connector.ProviderGoogleDrive, FolderID: "folder-1"}
	sources := &fakeSourceStore{source: source}
	accounts := &fakeAccountStore{account: &model.ConnectorAccount{ID: 1, WorkspaceID: 10, Provider: connector.ProviderGoogleDrive}}
	docs := newFakeDocStore()
	docs.byExternal["gdrive:f1"] = &model.Document{ID: 5, WorkspaceID: 10, ExternalID: "gdrive:f1", Etag: "etag-a"}

	delta := connector.Delta{Files: []connector.File{{FileID: "f1", Name: "doc.txt", MimeType: "text/plain", Etag: "etag-a"}}}
	factory := connector.NewFakeClientFactory(delta, map[string][]byte{"f1": []byte("hello world")})

	engine := NewEngine(sources, accounts, docs, fakeEncryptor{}, fakeOAuth{}, factory)

	stats, err := engine.Sync(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesCreated)
	assert.Equal(t, 0, stats.FilesUpdated)
	assert.Equal(t, 1, stats.FilesSkipped)
}

func TestEngine_Sync_LockedSourceIsNoop(t *testing.T) {
	source := &model.ConnectorSource{ID: 3, WorkspaceID: 10, Provider: connector.ProviderGoogleDrive, FolderID: "folder-1"}
	sources := &fakeSourceStore{source: source, locked: true}
	accounts := &fakeAccountStore{account: &model.ConnectorAccount{ID: 1, WorkspaceID: 10, Provider: connector.ProviderGoogleDrive}}
	docs := newFakeDocStore()
	factory := connector.NewFakeClientFactory(connector.Delta{}, nil)

	engine := NewEngine(sources, accounts, docs, fakeEncryptor{}, fakeOAuth{}, factory)

	stats, err := engine.Sync(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}
