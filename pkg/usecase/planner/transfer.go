package planner

import (
	"context"
	"errors"

	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
)

// Export is a serialized plan offered for download
type Export struct {
	FileName string
	Content  []byte
}

// Export serializes the saved plan with id. It reports false when no such
// plan exists. No store is modified.
func (u *UseCase) Export(ctx context.Context, id model.PlanID) (exported *Export, found bool, err error) {
	if err := u.localGuard.begin(); err != nil {
		return nil, false, err
	}
	defer func() { u.localGuard.end(err) }()

	plan, err := u.local.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	data, err := model.MarshalPlan(plan)
	if err != nil {
		return nil, false, err
	}

	return &Export{FileName: plan.FileName(), Content: data}, true, nil
}

// Import parses a plan document, saves it into the local collection and opens
// it in the editor. On any failure neither the editor nor the collection is
// changed.
func (u *UseCase) Import(ctx context.Context, content []byte) (imported *model.Plan, err error) {
	plan, err := model.ParsePlan(content)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.ID == "" {
		plan.ID = model.NewPlanID()
	}

	if err := u.localGuard.begin(); err != nil {
		return nil, err
	}
	defer func() { u.localGuard.end(err) }()

	if err := u.local.Put(ctx, plan); err != nil {
		return nil, err
	}
	u.replace(plan)

	logging.From(ctx).Info("plan imported", "id", plan.ID, "title", plan.Title)
	return plan, nil
}
