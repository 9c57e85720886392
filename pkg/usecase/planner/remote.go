package planner

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/adapter"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
)

func (u *UseCase) remoteReady() error {
	if u.remote == nil {
		return goerr.Wrap(model.ErrAuthNotReady, "remote storage is not configured")
	}
	if u.gate != nil {
		return u.gate.Ready()
	}
	return nil
}

// SaveRemote writes the editing plan to the remote folder. The file is found
// by the plan's safe file name and overwritten in place, or created.
func (u *UseCase) SaveRemote(ctx context.Context) (file *adapter.RemoteFile, err error) {
	plan, err := u.persistable()
	if err != nil {
		return nil, err
	}
	if err := u.remoteReady(); err != nil {
		return nil, err
	}

	if err := u.remoteGuard.begin(); err != nil {
		return nil, err
	}
	defer func() { u.remoteGuard.end(err) }()

	file, err = u.remote.Save(ctx, plan)
	if err != nil {
		return nil, err
	}
	u.adoptID(plan.ID)

	logging.From(ctx).Info("plan saved remotely", "id", plan.ID, "file", file.Name)
	return file, nil
}

// ListRemote returns the plan files in the remote folder sorted by name
func (u *UseCase) ListRemote(ctx context.Context) (files []*adapter.RemoteFile, err error) {
	if err := u.remoteReady(); err != nil {
		return nil, err
	}

	if err := u.remoteGuard.begin(); err != nil {
		return nil, err
	}
	defer func() { u.remoteGuard.end(err) }()

	return u.remote.List(ctx)
}

// LoadRemote opens a remote plan file in the editor, including its ID. A
// failed load leaves the editor unchanged.
func (u *UseCase) LoadRemote(ctx context.Context, fileID string) (plan *model.Plan, err error) {
	if err := u.remoteReady(); err != nil {
		return nil, err
	}

	if err := u.remoteGuard.begin(); err != nil {
		return nil, err
	}
	defer func() { u.remoteGuard.end(err) }()

	plan, err = u.remote.Load(ctx, fileID)
	if err != nil {
		return nil, err
	}
	u.replace(plan)

	return plan, nil
}
