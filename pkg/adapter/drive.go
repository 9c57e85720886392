package adapter

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveClient implements DocumentStore with the Google Drive v3 API
type DriveClient struct {
	service *drive.Service
}

// NewDrive creates a Drive client authenticated by tokenSource. The token is
// taken from tokenSource on every request, so a session that signs out and in
// again is picked up without rebuilding the client.
func NewDrive(ctx context.Context, tokenSource oauth2.TokenSource) (*DriveClient, error) {
	return NewDriveFromHTTP(ctx, TokenHTTPClient(tokenSource), "")
}

// TokenHTTPClient returns an HTTP client authorizing each request with a
// fresh token from tokenSource
func TokenHTTPClient(tokenSource oauth2.TokenSource) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: tokenSource},
	}
}

// NewDriveFromHTTP creates a Drive client from a pre-configured HTTP client.
// endpoint overrides the API base URL when not empty.
func NewDriveFromHTTP(ctx context.Context, httpClient *http.Client, endpoint string) (*DriveClient, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create drive service")
	}
	return &DriveClient{service: svc}, nil
}

// quote escapes a literal for the Drive query language
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func (d *DriveClient) FindFolder(ctx context.Context, name string) (string, bool, error) {
	q := "mimeType=" + quote(folderMimeType) + " and name=" + quote(name) + " and trashed=false"
	resp, err := d.service.Files.List().Q(q).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", false, goerr.Wrap(err, "failed to search folder", goerr.V("name", name))
	}
	if len(resp.Files) == 0 {
		return "", false, nil
	}
	return resp.Files[0].Id, true, nil
}

func (d *DriveClient) CreateFolder(ctx context.Context, name string) (string, error) {
	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	created, err := d.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", goerr.Wrap(err, "failed to create folder", goerr.V("name", name))
	}
	return created.Id, nil
}

func (d *DriveClient) FindFile(ctx context.Context, folderID, name string) (*RemoteFile, error) {
	q := quote(folderID) + " in parents and name=" + quote(name) + " and trashed=false"
	resp, err := d.service.Files.List().Q(q).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search file", goerr.V("folder", folderID), goerr.V("name", name))
	}
	if len(resp.Files) == 0 {
		return nil, nil
	}
	return &RemoteFile{ID: resp.Files[0].Id, Name: resp.Files[0].Name}, nil
}

func (d *DriveClient) ListJSON(ctx context.Context, folderID string) ([]*RemoteFile, error) {
	q := quote(folderID) + " in parents and mimeType=" + quote(jsonMimeType) + " and trashed=false"

	var files []*RemoteFile
	err := d.service.Files.List().
		Q(q).
		Fields("nextPageToken, files(id, name)").
		OrderBy("name").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, &RemoteFile{ID: f.Id, Name: f.Name})
			}
			return nil
		})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list files", goerr.V("folder", folderID))
	}

	return files, nil
}

func (d *DriveClient) CreateFile(ctx context.Context, folderID, name string, content []byte) (*RemoteFile, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: jsonMimeType,
		Parents:  []string{folderID},
	}
	created, err := d.service.Files.Create(meta).
		Media(bytes.NewReader(content), googleapi.ContentType(jsonMimeType)).
		Fields("id, name").
		Context(ctx).
		Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create file", goerr.V("folder", folderID), goerr.V("name", name))
	}
	return &RemoteFile{ID: created.Id, Name: created.Name}, nil
}

func (d *DriveClient) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	_, err := d.service.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(content), googleapi.ContentType(jsonMimeType)).
		Context(ctx).
		Do()
	if err != nil {
		return goerr.Wrap(err, "failed to update file", goerr.V("file_id", fileID))
	}
	return nil
}

func (d *DriveClient) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := d.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download file", goerr.V("file_id", fileID))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read file content", goerr.V("file_id", fileID))
	}
	return data, nil
}
