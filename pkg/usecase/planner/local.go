package planner

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
)

// SaveLocal upserts the editing plan into the local collection. The editor's
// ID is set on first save so later saves update the same record.
func (u *UseCase) SaveLocal(ctx context.Context) (saved *model.Plan, err error) {
	plan, err := u.persistable()
	if err != nil {
		return nil, err
	}

	if err := u.localGuard.begin(); err != nil {
		return nil, err
	}
	defer func() { u.localGuard.end(err) }()

	if err := u.local.Put(ctx, plan); err != nil {
		return nil, err
	}
	u.adoptID(plan.ID)

	logging.From(ctx).Info("plan saved locally", "id", plan.ID, "title", plan.Title)
	return plan, nil
}

// ListLocal returns the locally saved plans in insertion order
func (u *UseCase) ListLocal(ctx context.Context) (plans []*model.Plan, err error) {
	if err := u.localGuard.begin(); err != nil {
		return nil, err
	}
	defer func() { u.localGuard.end(err) }()

	return u.local.List(ctx)
}

// LoadLocal opens the saved plan with id, discarding unsaved edits. It
// reports false and leaves the editor unchanged when no such plan exists.
func (u *UseCase) LoadLocal(ctx context.Context, id model.PlanID) (loaded bool, err error) {
	if err := u.localGuard.begin(); err != nil {
		return false, err
	}
	defer func() { u.localGuard.end(err) }()

	plan, err := u.local.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	u.replace(plan)
	return true, nil
}

// DeleteLocal removes the saved plan with id after confirmation. Deleting the
// plan open in the editor resets the editor to a blank plan.
func (u *UseCase) DeleteLocal(ctx context.Context, id model.PlanID) (deleted bool, err error) {
	if u.confirmer == nil {
		return false, goerr.New("confirmation is required to delete a plan")
	}

	ok, err := u.confirmer.Confirm(ctx, "Are you sure you want to delete this locally saved plan?")
	if err != nil {
		return false, goerr.Wrap(err, "failed to confirm deletion")
	}
	if !ok {
		return false, nil
	}

	if err := u.localGuard.begin(); err != nil {
		return false, err
	}
	defer func() { u.localGuard.end(err) }()

	deleted, err = u.local.Delete(ctx, id)
	if err != nil {
		return false, err
	}

	if deleted && u.Current().ID == id {
		u.NewPlan()
	}

	logging.From(ctx).Info("plan deleted", "id", id, "deleted", deleted)
	return deleted, nil
}
