package connector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// FakeFile is a canned file body used by FakeClient, keyed by FileID.
type FakeFile struct {
	File
	Content []byte
}

// FakeClient serves a fixed in-memory file set, for local development and
// tests that exercise the sync engine without reaching Google Drive.
type FakeClient struct {
	Delta  Delta
	Bodies map[string][]byte
}

func NewFakeClientFactory(delta Delta, bodies map[string][]byte) ClientFactory {
	return func(accessToken string) Client {
		return &FakeClient{Delta: delta, Bodies: bodies}
	}
}

func (c *FakeClient) IsSupportedMimeType(mimeType string) bool {
	return supportedDirectMimes[mimeType] || googleExportMimes[mimeType] != ""
}

func (c *FakeClient) GetDelta(ctx context.Context, folderID, cursor string) (Delta, error) {
	return c.Delta, nil
}

func (c *FakeClient) FetchFileContent(ctx context.Context, fileID, mimeType string) ([]byte, string, error) {
	body := c.Bodies[fileID]
	sum := sha256.Sum256(body)
	return body, hex.EncodeToString(sum[:]), nil
}
