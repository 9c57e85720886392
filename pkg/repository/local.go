package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/adapter"
	"github.com/m-mizutani/timekeeper/pkg/model"
)

// LocalStorageKey is the fixed key holding the whole plan collection
const LocalStorageKey = "conference-timekeeper-plans"

// LocalPlans keeps all plans as one JSON array under LocalStorageKey. Every
// write replaces the whole collection. Writes are serialized so concurrent
// callers in one process never drop each other's plans.
type LocalPlans struct {
	kv adapter.KeyValue
	mu sync.Mutex
}

// NewLocal creates a LocalPlans on kv
func NewLocal(kv adapter.KeyValue) *LocalPlans {
	return &LocalPlans{kv: kv}
}

// List returns the stored plans in insertion order
func (r *LocalPlans) List(ctx context.Context) ([]*model.Plan, error) {
	data, ok, err := r.kv.Get(ctx, LocalStorageKey)
	if err != nil {
		return nil, goerr.Wrap(model.Mark(model.ErrPersistence, err), "failed to read plans")
	}
	if !ok || len(data) == 0 {
		return []*model.Plan{}, nil
	}

	var plans []*model.Plan
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, goerr.Wrap(model.Mark(model.ErrFormat, err), "stored plans are corrupted",
			goerr.V("key", LocalStorageKey))
	}
	if plans == nil {
		plans = []*model.Plan{}
	}
	return plans, nil
}

// Get returns the plan with id, or ErrNotFound
func (r *LocalPlans) Get(ctx context.Context, id model.PlanID) (*model.Plan, error) {
	plans, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	if i := indexOf(plans, id); i >= 0 {
		return plans[i], nil
	}
	return nil, goerr.Wrap(model.ErrNotFound, "plan not found", goerr.V("id", id))
}

// Put replaces the plan with the same ID in place, or appends it. A plan
// without ID or title is rejected with ErrValidation.
func (r *LocalPlans) Put(ctx context.Context, plan *model.Plan) error {
	if plan.ID == "" {
		return goerr.Wrap(model.ErrValidation, "plan ID is empty")
	}
	if err := plan.Validate(); err != nil {
		return goerr.Wrap(err, "plan cannot be stored", goerr.V("id", plan.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	plans, err := r.List(ctx)
	if err != nil {
		return err
	}

	return r.write(ctx, Upsert(plans, plan))
}

// Delete removes the plan with id. It reports whether a plan was removed.
func (r *LocalPlans) Delete(ctx context.Context, id model.PlanID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	plans, err := r.List(ctx)
	if err != nil {
		return false, err
	}

	i := indexOf(plans, id)
	if i < 0 {
		return false, nil
	}

	remaining := make([]*model.Plan, 0, len(plans)-1)
	remaining = append(remaining, plans[:i]...)
	remaining = append(remaining, plans[i+1:]...)

	if err := r.write(ctx, remaining); err != nil {
		return false, err
	}
	return true, nil
}

func (r *LocalPlans) write(ctx context.Context, plans []*model.Plan) error {
	data, err := json.Marshal(plans)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal plans")
	}
	if err := r.kv.Set(ctx, LocalStorageKey, data); err != nil {
		return goerr.Wrap(model.Mark(model.ErrPersistence, err), "failed to save plans",
			goerr.V("count", len(plans)))
	}
	return nil
}

// Upsert returns a new collection where plan replaces the element with the
// same ID, or is appended when none matches. plans is not modified.
func Upsert(plans []*model.Plan, plan *model.Plan) []*model.Plan {
	updated := make([]*model.Plan, len(plans), len(plans)+1)
	copy(updated, plans)

	if i := indexOf(updated, plan.ID); i >= 0 {
		updated[i] = plan
		return updated
	}
	return append(updated, plan)
}

func indexOf(plans []*model.Plan, id model.PlanID) int {
	for i, p := range plans {
		if p != nil && p.ID == id {
			return i
		}
	}
	return -1
}
