package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/SaintWyss/rag-corp-sub001/pkg/resilience"
)

const (
	driveFilesURL          = "https://www.googleapis.com/drive/v3/files"
	driveChangesURL        = "https://www.googleapis.com/drive/v3/changes"
	driveStartPageTokenURL = "https://www.googleapis.com/drive/v3/changes/startPageToken"
	driveRequestTimeout    = 30 * time.Second
)

// DriveClient implements Client against the Google Drive v3 REST API over
// one access token, bound to the lifetime of a single sync run.
type DriveClient struct {
	httpClient   *http.Client
	accessToken  string
	maxFileBytes int64
	retry        resilience.RetryConfig
}

func NewDriveClientFactory(maxFileBytes int64, retry resilience.RetryConfig) ClientFactory {
	return func(accessToken string) Client {
		return &DriveClient{
			httpClient:   &http.Client{Timeout: driveRequestTimeout},
			accessToken:  accessToken,
			maxFileBytes: maxFileBytes,
			retry:        retry,
		}
	}
}

func (c *DriveClient) IsSupportedMimeType(mimeType string) bool {
	if _, ok := googleExportMimes[mimeType]; ok {
		return true
	}
	return supportedDirectMimes[mimeType]
}

type driveFileMeta struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime"`
	MD5Checksum  string `json:"md5Checksum"`
}

type driveChangesResponse struct {
	Changes           []driveChange `json:"changes"`
	NewStartPageToken string        `json:"newStartPageToken"`
	NextPageToken     string        `json:"nextPageToken"`
}

type driveChange struct {
	FileID  string        `json:"fileId"`
	Removed bool          `json:"removed"`
	File    driveFileMeta `json:"file"`
}

// GetDelta resumes from cursor (a Drive page token) when present, or
// requests a fresh start page token for the folder's first sync.
func (c *DriveClient) GetDelta(ctx context.Context, folderID, cursor string) (Delta, error) {
	pageToken := cursor
	if pageToken == "" {
		token, err := c.startPageToken(ctx)
		if err != nil {
			return Delta{}, err
		}
		pageToken = token
	}

	var files []File
	for {
		resp, err := c.fetchChangesPage(ctx, pageToken)
		if err != nil {
			return Delta{}, err
		}
		for _, ch := range resp.Changes {
			if ch.Removed || ch.File.ID == "" {
				continue
			}
			files = append(files, toConnectorFile(ch.File))
		}
		if resp.NextPageToken != "" {
			pageToken = resp.NextPageToken
			continue
		}
		return Delta{Files: files, NewCursor: resp.NewStartPageToken}, nil
	}
}

func toConnectorFile(m driveFileMeta) File {
	f := File{FileID: m.ID, Name: m.Name, MimeType: m.MimeType, Etag: m.MD5Checksum}
	if t, err := time.Parse(time.RFC3339, m.ModifiedTime); err == nil {
		f.ModifiedTime = &t
	}
	return f
}

func (c *DriveClient) startPageToken(ctx context.Context) (string, error) {
	var token string
	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, driveStartPageTokenURL, nil)
		if err != nil {
			return resilience.Permanent(err, 0)
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return resilience.Transient(err, 0, 0)
		}
		defer resp.Body.Close()
		if err := classifyStatus(resp.StatusCode); err != nil {
			return err
		}

		var body struct {
			StartPageToken string `json:"startPageToken"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resilience.Transient(err, resp.StatusCode, 0)
		}
		token = body.StartPageToken
		return nil
	})
	return token, err
}

func (c *DriveClient) fetchChangesPage(ctx context.Context, pageToken string) (driveChangesResponse, error) {
	var out driveChangesResponse
	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		q := url.Values{}
		q.Set("pageToken", pageToken)
		q.Set("fields", "changes(fileId,removed,file(id,name,mimeType,modifiedTime,md5Checksum)),newStartPageToken,nextPageToken")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, driveChangesURL+"?"+q.Encode(), nil)
		if err != nil {
			return resilience.Permanent(err, 0)
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return resilience.Transient(err, 0, 0)
		}
		defer resp.Body.Close()
		if err := classifyStatus(resp.StatusCode); err != nil {
			return err
		}
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	return out, err
}

// FetchFileContent streams the file body through a size-capped hasher.
// Native Google Workspace formats (Docs/Sheets/Slides) are exported rather
// than downloaded directly, since they have no native byte representation.
func (c *DriveClient) FetchFileContent(ctx context.Context, fileID, mimeType string) ([]byte, string, error) {
	endpoint := fmt.Sprintf("%s/%s?alt=media", driveFilesURL, url.PathEscape(fileID))
	if exportMime, ok := googleExportMimes[mimeType]; ok {
		q := url.Values{}
		q.Set("mimeType", exportMime)
		endpoint = fmt.Sprintf("%s/%s/export?%s", driveFilesURL, url.PathEscape(fileID), q.Encode())
	}

	var result resilience.DownloadResult
	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return resilience.Permanent(err, 0)
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return resilience.Transient(err, 0, 0)
		}
		defer resp.Body.Close()
		if err := classifyStatus(resp.StatusCode); err != nil {
			return err
		}

		if cl := resp.Header.Get("Content-Length"); cl != "" {
			if n, parseErr := strconv.ParseInt(cl, 10, 64); parseErr == nil && n > c.maxFileBytes {
				return resilience.Permanent(&FileTooLargeError{SizeBytes: n, MaxBytes: c.maxFileBytes}, resp.StatusCode)
			}
		}

		downloaded, dlErr := resilience.CappedDownload(resp.Body, c.maxFileBytes)
		if dlErr != nil {
			return resilience.Permanent(dlErr, resp.StatusCode)
		}
		result = downloaded
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return result.Data, result.Checksum, nil
}

func (c *DriveClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
}

func classifyStatus(status int) error {
	if status >= 200 && status < 300 {
		return nil
	}
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return resilience.Permanent(fmt.Errorf("drive api: status %d", status), status)
	default:
		return resilience.Transient(fmt.Errorf("drive api: status %d", status), status, 0)
	}
}
