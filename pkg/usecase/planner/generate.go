package planner

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/model"
)

// Generate fills the title and segments of the editing plan from a topic.
// The segment count, duration and ID are kept.
func (u *UseCase) Generate(ctx context.Context, topic string) (plan *model.Plan, err error) {
	if strings.TrimSpace(topic) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "topic is empty")
	}
	if u.generator == nil {
		return nil, goerr.New("content generation is not configured")
	}

	if err := u.generateGuard.begin(); err != nil {
		return nil, err
	}
	defer func() { u.generateGuard.end(err) }()

	current := u.Current()
	generated, err := u.generator.Generate(ctx, topic, len(current.Segments), current.TotalDurationMinutes)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	u.current.Title = generated.Title
	u.current.Segments = generated.Segments
	plan = u.current.Clone()
	u.mu.Unlock()

	return plan, nil
}
