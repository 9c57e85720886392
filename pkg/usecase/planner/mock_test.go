package planner_test

import (
	"context"
	"fmt"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/adapter"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/repository"
	"github.com/m-mizutani/timekeeper/pkg/usecase/planner"
)

// Mock KeyValue
type mockKeyValue struct {
	values map[string][]byte
	setErr error

	// when set, Set signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newMockKeyValue() *mockKeyValue {
	return &mockKeyValue{values: make(map[string][]byte)}
}

func (m *mockKeyValue) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockKeyValue) Set(ctx context.Context, key string, value []byte) error {
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *mockKeyValue) stored() string {
	return string(m.values[repository.LocalStorageKey])
}

// Mock DocumentStore
type mockDocumentStore struct {
	folderID string
	files    map[string]*adapter.RemoteFile
	contents map[string][]byte
	nextID   int
	fail     bool
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{
		files:    make(map[string]*adapter.RemoteFile),
		contents: make(map[string][]byte),
	}
}

func (m *mockDocumentStore) err() error {
	if m.fail {
		return goerr.New("network error")
	}
	return nil
}

func (m *mockDocumentStore) FindFolder(ctx context.Context, name string) (string, bool, error) {
	return m.folderID, m.folderID != "", m.err()
}

func (m *mockDocumentStore) CreateFolder(ctx context.Context, name string) (string, error) {
	m.folderID = "folder"
	return m.folderID, m.err()
}

func (m *mockDocumentStore) FindFile(ctx context.Context, folderID, name string) (*adapter.RemoteFile, error) {
	for _, f := range m.files {
		if f.Name == name {
			return f, m.err()
		}
	}
	return nil, m.err()
}

func (m *mockDocumentStore) ListJSON(ctx context.Context, folderID string) ([]*adapter.RemoteFile, error) {
	if err := m.err(); err != nil {
		return nil, err
	}
	files := make([]*adapter.RemoteFile, 0, len(m.files))
	for _, f := range m.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (m *mockDocumentStore) CreateFile(ctx context.Context, folderID, name string, content []byte) (*adapter.RemoteFile, error) {
	if err := m.err(); err != nil {
		return nil, err
	}
	m.nextID++
	f := &adapter.RemoteFile{ID: fmt.Sprintf("file-%d", m.nextID), Name: name}
	m.files[f.ID] = f
	m.contents[f.ID] = content
	return f, nil
}

func (m *mockDocumentStore) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	if err := m.err(); err != nil {
		return err
	}
	m.contents[fileID] = content
	return nil
}

func (m *mockDocumentStore) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := m.err(); err != nil {
		return nil, err
	}
	return m.contents[fileID], nil
}

// Mock RemoteGate
type mockGate struct {
	ready bool
}

func (m *mockGate) Ready() error {
	if !m.ready {
		return goerr.Wrap(model.ErrAuthNotReady, "not signed in")
	}
	return nil
}

// Mock Generator
type mockGenerator struct {
	plan *model.Plan
	err  error

	calls []string

	entered chan struct{}
	release chan struct{}
}

func (m *mockGenerator) Generate(ctx context.Context, topic string, segmentCount, durationMinutes int) (*model.Plan, error) {
	m.calls = append(m.calls, fmt.Sprintf("%s/%d/%d", topic, segmentCount, durationMinutes))
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.plan.Clone(), nil
}

func confirmAnswer(answer bool) planner.Confirmer {
	return planner.ConfirmFunc(func(ctx context.Context, message string) (bool, error) {
		return answer, nil
	})
}
