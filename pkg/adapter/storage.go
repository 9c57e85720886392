package adapter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// bucketStore implements DocumentStore on Cloud Storage. A folder is an
// object name prefix and a file ID is the full object name.
type bucketStore struct {
	bucketName string
	client     *storage.Client
}

// NewBucketStore creates a DocumentStore on a Cloud Storage bucket
func NewBucketStore(ctx context.Context, bucketName string) (DocumentStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &bucketStore{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func folderPrefix(name string) string {
	return strings.TrimSuffix(name, "/") + "/"
}

func (s *bucketStore) FindFolder(ctx context.Context, name string) (string, bool, error) {
	prefix := folderPrefix(name)
	it := s.client.Bucket(s.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	_, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return "", false, nil
	}
	if err != nil {
		return "", false, goerr.Wrap(err, "failed to search folder", goerr.V("prefix", prefix))
	}
	return prefix, true, nil
}

func (s *bucketStore) CreateFolder(ctx context.Context, name string) (string, error) {
	prefix := folderPrefix(name)
	w := s.client.Bucket(s.bucketName).Object(prefix).NewWriter(ctx)
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to create folder marker", goerr.V("prefix", prefix))
	}
	return prefix, nil
}

func (s *bucketStore) FindFile(ctx context.Context, folderID, name string) (*RemoteFile, error) {
	key := folderID + name
	attrs, err := s.client.Bucket(s.bucketName).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get object attributes", goerr.V("key", key))
	}
	return &RemoteFile{ID: attrs.Name, Name: path.Base(attrs.Name)}, nil
}

func (s *bucketStore) ListJSON(ctx context.Context, folderID string) ([]*RemoteFile, error) {
	it := s.client.Bucket(s.bucketName).Objects(ctx, &storage.Query{
		Prefix:    folderID,
		Delimiter: "/",
	})

	var files []*RemoteFile
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list objects", goerr.V("prefix", folderID))
		}
		// Prefix entries and the folder marker have no JSON content type
		if attrs.ContentType != jsonMimeType {
			continue
		}
		files = append(files, &RemoteFile{ID: attrs.Name, Name: path.Base(attrs.Name)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *bucketStore) write(ctx context.Context, key string, content []byte) error {
	w := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = jsonMimeType

	if _, err := io.Copy(w, bytes.NewReader(content)); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write object", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close object writer", goerr.V("key", key))
	}
	return nil
}

func (s *bucketStore) CreateFile(ctx context.Context, folderID, name string, content []byte) (*RemoteFile, error) {
	key := folderID + name
	if err := s.write(ctx, key, content); err != nil {
		return nil, err
	}
	return &RemoteFile{ID: key, Name: name}, nil
}

func (s *bucketStore) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	return s.write(ctx, fileID, content)
}

func (s *bucketStore) Download(ctx context.Context, fileID string) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucketName).Object(fileID).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.Value("key", fileID))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object content", goerr.Value("key", fileID))
	}
	return data, nil
}
