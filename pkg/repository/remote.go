package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/adapter"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
)

// FolderName is the remote folder holding one file per plan
const FolderName = "ConferenceTimekeeperPlans"

// RemotePlans stores plans as JSON files in a single remote folder. A file is
// looked up by the plan's safe file name, so two plans whose titles normalize
// to the same name share one remote file.
type RemotePlans struct {
	store adapter.DocumentStore
}

// NewRemote creates a RemotePlans on store
func NewRemote(store adapter.DocumentStore) *RemotePlans {
	return &RemotePlans{store: store}
}

func remoteError(err error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(model.Mark(model.ErrRemoteUnavailable, err), msg, opts...)
}

// folder finds the plan folder, creating it if absent
func (r *RemotePlans) folder(ctx context.Context) (string, error) {
	id, ok, err := r.store.FindFolder(ctx, FolderName)
	if err != nil {
		return "", remoteError(err, "failed to find plan folder")
	}
	if ok {
		return id, nil
	}

	id, err = r.store.CreateFolder(ctx, FolderName)
	if err != nil {
		return "", remoteError(err, "failed to create plan folder")
	}
	logging.From(ctx).Debug("created remote folder", "name", FolderName, "id", id)
	return id, nil
}

// Save overwrites the file named after the plan title, or creates it
func (r *RemotePlans) Save(ctx context.Context, plan *model.Plan) (*adapter.RemoteFile, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	data, err := model.MarshalPlan(plan)
	if err != nil {
		return nil, err
	}

	folderID, err := r.folder(ctx)
	if err != nil {
		return nil, err
	}

	name := plan.FileName()
	existing, err := r.store.FindFile(ctx, folderID, name)
	if err != nil {
		return nil, remoteError(err, "failed to search plan file", goerr.V("name", name))
	}

	if existing != nil {
		if err := r.store.UpdateFile(ctx, existing.ID, data); err != nil {
			return nil, remoteError(err, "failed to update plan file", goerr.V("file_id", existing.ID))
		}
		logging.From(ctx).Debug("updated remote plan", "name", name, "file_id", existing.ID)
		return existing, nil
	}

	created, err := r.store.CreateFile(ctx, folderID, name, data)
	if err != nil {
		return nil, remoteError(err, "failed to create plan file", goerr.V("name", name))
	}
	logging.From(ctx).Debug("created remote plan", "name", name, "file_id", created.ID)
	return created, nil
}

// List returns the plan files sorted by name, without their content
func (r *RemotePlans) List(ctx context.Context) ([]*adapter.RemoteFile, error) {
	folderID, err := r.folder(ctx)
	if err != nil {
		return nil, err
	}

	files, err := r.store.ListJSON(ctx, folderID)
	if err != nil {
		return nil, remoteError(err, "failed to list plan files")
	}
	if files == nil {
		files = []*adapter.RemoteFile{}
	}
	return files, nil
}

// Load fetches and decodes a plan file
func (r *RemotePlans) Load(ctx context.Context, fileID string) (*model.Plan, error) {
	data, err := r.store.Download(ctx, fileID)
	if err != nil {
		return nil, remoteError(err, "failed to fetch plan file", goerr.V("file_id", fileID))
	}
	if len(data) == 0 {
		return nil, goerr.Wrap(model.ErrRemoteUnavailable, "plan file has no content", goerr.V("file_id", fileID))
	}

	plan, err := model.ParsePlan(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse plan file", goerr.V("file_id", fileID))
	}
	return plan, nil
}
