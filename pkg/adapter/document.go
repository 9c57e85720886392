package adapter

import "context"

// RemoteFile identifies a file in a remote document store
type RemoteFile struct {
	ID   string
	Name string
}

// DocumentStore is a cloud file API organized in folders
type DocumentStore interface {
	// FindFolder returns the ID of the folder with name. ok is false if absent.
	FindFolder(ctx context.Context, name string) (id string, ok bool, err error)
	// CreateFolder creates a folder and returns its ID
	CreateFolder(ctx context.Context, name string) (string, error)
	// FindFile returns the file named name in the folder, or nil if absent
	FindFile(ctx context.Context, folderID, name string) (*RemoteFile, error)
	// ListJSON returns JSON files in the folder sorted by name
	ListJSON(ctx context.Context, folderID string) ([]*RemoteFile, error)
	// CreateFile creates a JSON file in the folder with content
	CreateFile(ctx context.Context, folderID, name string, content []byte) (*RemoteFile, error)
	// UpdateFile overwrites the content of an existing file
	UpdateFile(ctx context.Context, fileID string, content []byte) error
	// Download fetches the raw content of a file
	Download(ctx context.Context, fileID string) ([]byte, error)
}

const (
	jsonMimeType   = "application/json"
	folderMimeType = "application/vnd.google-apps.folder"
)
