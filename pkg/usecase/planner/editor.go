package planner

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/model"
)

// Current returns a copy of the plan being edited
func (u *UseCase) Current() *model.Plan {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.current.Clone()
}

// replace overwrites the whole editing state with plan
func (u *UseCase) replace(plan *model.Plan) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.current = plan.Clone()
}

// NewPlan discards the editing state and opens a blank plan
func (u *UseCase) NewPlan() {
	u.replace(model.NewPlan())
}

// SetTitle sets the title of the plan being edited
func (u *UseCase) SetTitle(title string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.current.Title = title
}

// SetDuration sets the total duration in minutes
func (u *UseCase) SetDuration(minutes int) error {
	if !model.ValidDuration(minutes) {
		return goerr.Wrap(model.ErrValidation, "duration is not selectable",
			goerr.V("minutes", minutes),
			goerr.V("options", model.DurationOptions),
		)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.current.TotalDurationMinutes = minutes
	return nil
}

// Resize sets the number of segments, dropping trailing ones or appending
// blank ones
func (u *UseCase) Resize(count int) error {
	if count < model.MinSegmentCount || count > model.MaxSegmentCount {
		return goerr.Wrap(model.ErrValidation, "segment count out of range",
			goerr.V("count", count),
			goerr.V("min", model.MinSegmentCount),
			goerr.V("max", model.MaxSegmentCount),
		)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.current.Resize(count)
	return nil
}

// UpdateSegment sets one text field of the segment at index (0-based)
func (u *UseCase) UpdateSegment(index int, field model.SegmentField, value string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if index < 0 || index >= len(u.current.Segments) {
		return goerr.Wrap(model.ErrValidation, "segment index out of range",
			goerr.V("index", index),
			goerr.V("count", len(u.current.Segments)),
		)
	}

	seg := *u.current.Segments[index]
	if err := seg.Set(field, value); err != nil {
		return err
	}
	u.current.Segments[index] = &seg
	return nil
}

// SegmentDuration returns the per-segment duration of the plan being edited
func (u *UseCase) SegmentDuration() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.current.SegmentDuration()
}

// Finalize returns the plan ready to run. A plan never saved gets a fresh ID
// for this run only; the editor keeps treating it as unsaved.
func (u *UseCase) Finalize() (*model.Plan, error) {
	plan := u.Current()
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.ID == "" {
		plan.ID = model.NewPlanID()
	}
	return plan, nil
}

// adoptID marks the editing plan as persisted under id unless it already has one
func (u *UseCase) adoptID(id model.PlanID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.current.ID == "" {
		u.current.ID = id
	}
}

// persistable returns a copy of the editing plan with an ID, validated
func (u *UseCase) persistable() (*model.Plan, error) {
	plan := u.Current()
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.ID == "" {
		plan.ID = model.NewPlanID()
	}
	return plan, nil
}
