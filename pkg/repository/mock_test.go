package repository_test

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/adapter"
)

// Mock KeyValue
type mockKeyValue struct {
	values map[string][]byte
	getErr error
	setErr error
	sets   int
}

func newMockKeyValue() *mockKeyValue {
	return &mockKeyValue{values: make(map[string][]byte)}
}

func (m *mockKeyValue) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockKeyValue) Set(ctx context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Mock DocumentStore
type mockDocumentStore struct {
	folders map[string]string
	files   map[string]*mockFile
	nextID  int

	failOn  string
	created int
	updated int
}

type mockFile struct {
	folderID string
	name     string
	content  []byte
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{
		folders: make(map[string]string),
		files:   make(map[string]*mockFile),
	}
}

func (m *mockDocumentStore) fail(op string) error {
	if m.failOn == op {
		return goerr.New("remote call failed", goerr.V("op", op))
	}
	return nil
}

func (m *mockDocumentStore) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockDocumentStore) FindFolder(ctx context.Context, name string) (string, bool, error) {
	if err := m.fail("FindFolder"); err != nil {
		return "", false, err
	}
	id, ok := m.folders[name]
	return id, ok, nil
}

func (m *mockDocumentStore) CreateFolder(ctx context.Context, name string) (string, error) {
	if err := m.fail("CreateFolder"); err != nil {
		return "", err
	}
	id := m.newID("folder")
	m.folders[name] = id
	return id, nil
}

func (m *mockDocumentStore) FindFile(ctx context.Context, folderID, name string) (*adapter.RemoteFile, error) {
	if err := m.fail("FindFile"); err != nil {
		return nil, err
	}
	for id, f := range m.files {
		if f.folderID == folderID && f.name == name {
			return &adapter.RemoteFile{ID: id, Name: f.name}, nil
		}
	}
	return nil, nil
}

func (m *mockDocumentStore) ListJSON(ctx context.Context, folderID string) ([]*adapter.RemoteFile, error) {
	if err := m.fail("ListJSON"); err != nil {
		return nil, err
	}
	var files []*adapter.RemoteFile
	for id, f := range m.files {
		if f.folderID == folderID && strings.HasSuffix(f.name, ".json") {
			files = append(files, &adapter.RemoteFile{ID: id, Name: f.name})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (m *mockDocumentStore) CreateFile(ctx context.Context, folderID, name string, content []byte) (*adapter.RemoteFile, error) {
	if err := m.fail("CreateFile"); err != nil {
		return nil, err
	}
	id := m.newID("file")
	m.files[id] = &mockFile{folderID: folderID, name: name, content: content}
	m.created++
	return &adapter.RemoteFile{ID: id, Name: name}, nil
}

func (m *mockDocumentStore) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	if err := m.fail("UpdateFile"); err != nil {
		return err
	}
	f, ok := m.files[fileID]
	if !ok {
		return goerr.New("file not found", goerr.V("file_id", fileID))
	}
	f.content = content
	m.updated++
	return nil
}

func (m *mockDocumentStore) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := m.fail("Download"); err != nil {
		return nil, err
	}
	f, ok := m.files[fileID]
	if !ok {
		return nil, goerr.New("file not found", goerr.V("file_id", fileID))
	}
	return f.content, nil
}
