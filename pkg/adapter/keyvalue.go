package adapter

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// KeyValue is the local persistent key-value storage. Set overwrites the whole
// value atomically or fails leaving the previous value intact.
type KeyValue interface {
	// Get returns the last written value. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set overwrites the value of key
	Set(ctx context.Context, key string, value []byte) error
}

// fileKeyValue stores each key as one file in a directory
type fileKeyValue struct {
	dir string
}

// NewFileKeyValue creates a KeyValue backed by files under dir
func NewFileKeyValue(dir string) (KeyValue, error) {
	if dir == "" {
		return nil, goerr.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create data directory", goerr.V("dir", dir))
	}
	return &fileKeyValue{dir: dir}, nil
}

func (f *fileKeyValue) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", goerr.New("invalid key", goerr.V("key", key))
	}
	return filepath.Join(f.dir, key+".json"), nil
}

func (f *fileKeyValue) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, goerr.Wrap(err, "failed to read value", goerr.V("path", path))
	}
	return data, true, nil
}

func (f *fileKeyValue) Set(ctx context.Context, key string, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary file", goerr.V("dir", f.dir))
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return goerr.Wrap(err, "failed to write value", goerr.V("path", tmpName))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return goerr.Wrap(err, "failed to sync value", goerr.V("path", tmpName))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temporary file", goerr.V("path", tmpName))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return goerr.Wrap(err, "failed to replace value", goerr.V("path", path))
	}
	committed = true

	return nil
}

const firestoreKVCollection = "kv"

// firestoreKeyValue stores each key as one document in the kv collection
type firestoreKeyValue struct {
	client *firestore.Client
}

type kvDocument struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// NewFirestoreKeyValue creates a KeyValue backed by a Firestore database
func NewFirestoreKeyValue(ctx context.Context, projectID, databaseID string) (KeyValue, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID),
		)
	}

	return &firestoreKeyValue{client: client}, nil
}

func (r *firestoreKeyValue) Get(ctx context.Context, key string) ([]byte, bool, error) {
	snap, err := r.client.Collection(firestoreKVCollection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, goerr.Wrap(err, "failed to get document", goerr.V("key", key))
	}

	var doc kvDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, false, goerr.Wrap(err, "failed to decode document", goerr.V("key", key))
	}
	return []byte(doc.Value), true, nil
}

func (r *firestoreKeyValue) Set(ctx context.Context, key string, value []byte) error {
	doc := kvDocument{
		Value:     string(value),
		UpdatedAt: time.Now(),
	}
	if _, err := r.client.Collection(firestoreKVCollection).Doc(key).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to set document", goerr.V("key", key))
	}
	return nil
}
