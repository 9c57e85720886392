// Package planner implements the plan editor and the Plan Store operations
// against the local and remote stores. All operations share one in-memory
// editing state; a loaded or saved plan's ID becomes the editor's ID so that
// later saves overwrite instead of duplicating.
package planner

import (
	"context"
	"sync"

	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/repository"
)

// Confirmer asks the user a yes/no question
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// RemoteGate reports whether remote operations may run. auth.Session
// implements it.
type RemoteGate interface {
	Ready() error
}

// Generator produces a plan title and segments for a topic
type Generator interface {
	Generate(ctx context.Context, topic string, segmentCount, durationMinutes int) (*model.Plan, error)
}

// UseCase provides the plan editor and Plan Store operations
type UseCase struct {
	local     *repository.LocalPlans
	remote    *repository.RemotePlans
	gate      RemoteGate
	generator Generator
	confirmer Confirmer

	localGuard    *guard
	remoteGuard   *guard
	generateGuard *guard

	mu      sync.Mutex
	current *model.Plan
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithRemote enables remote operations. gate may be nil when the document
// store authenticates on its own.
func WithRemote(remote *repository.RemotePlans, gate RemoteGate) Option {
	return func(uc *UseCase) {
		uc.remote = remote
		uc.gate = gate
	}
}

// WithGenerator enables AI-assisted generation
func WithGenerator(g Generator) Option {
	return func(uc *UseCase) {
		uc.generator = g
	}
}

// WithConfirmer sets the prompt used before destructive operations
func WithConfirmer(c Confirmer) Option {
	return func(uc *UseCase) {
		uc.confirmer = c
	}
}

// New creates a planner UseCase with a fresh blank plan open
func New(local *repository.LocalPlans, opts ...Option) *UseCase {
	uc := &UseCase{
		local:         local,
		localGuard:    newGuard("local"),
		remoteGuard:   newGuard("remote"),
		generateGuard: newGuard("generate"),
		current:       model.NewPlan(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// LocalStatus returns the busy state of the local store
func (u *UseCase) LocalStatus() Status { return u.localGuard.Status() }

// RemoteStatus returns the busy state of the remote store
func (u *UseCase) RemoteStatus() Status { return u.remoteGuard.Status() }

// GenerateStatus returns the busy state of content generation
func (u *UseCase) GenerateStatus() Status { return u.generateGuard.Status() }
