package planner_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/repository"
	"github.com/m-mizutani/timekeeper/pkg/usecase/planner"
)

func newUseCase(kv *mockKeyValue, opts ...planner.Option) *planner.UseCase {
	return planner.New(repository.NewLocal(kv), opts...)
}

func TestEditor(t *testing.T) {
	uc := newUseCase(newMockKeyValue())

	current := uc.Current()
	gt.Equal(t, current.ID, model.PlanID(""))
	gt.Equal(t, current.TotalDurationMinutes, 30)
	gt.A(t, current.Segments).Length(3)

	t.Run("duration must be selectable", func(t *testing.T) {
		gt.True(t, errors.Is(uc.SetDuration(20), model.ErrValidation))
		gt.NoError(t, uc.SetDuration(45))
		gt.Equal(t, uc.Current().TotalDurationMinutes, 45)
	})

	t.Run("segment count is bounded", func(t *testing.T) {
		gt.True(t, errors.Is(uc.Resize(0), model.ErrValidation))
		gt.True(t, errors.Is(uc.Resize(11), model.ErrValidation))
		gt.NoError(t, uc.Resize(4))
		gt.Equal(t, uc.SegmentDuration(), "11.25")
	})

	t.Run("update segment", func(t *testing.T) {
		gt.NoError(t, uc.UpdateSegment(0, model.SegmentFieldTitle, "Intro"))
		gt.Equal(t, uc.Current().Segments[0].Title, "Intro")
		gt.True(t, errors.Is(uc.UpdateSegment(4, model.SegmentFieldTitle, "x"), model.ErrValidation))
		gt.True(t, errors.Is(uc.UpdateSegment(-1, model.SegmentFieldTitle, "x"), model.ErrValidation))
	})

	t.Run("current returns a copy", func(t *testing.T) {
		c := uc.Current()
		c.Segments[0].Title = "mutated"
		gt.Equal(t, uc.Current().Segments[0].Title, "Intro")
	})
}

func TestResizePreservesSegments(t *testing.T) {
	uc := newUseCase(newMockKeyValue())
	gt.NoError(t, uc.Resize(5))
	for i := 0; i < 5; i++ {
		gt.NoError(t, uc.UpdateSegment(i, model.SegmentFieldTitle, string(rune('A'+i))))
	}
	before := uc.Current()

	gt.NoError(t, uc.Resize(2))
	after := uc.Current()
	gt.Equal(t, after.Segments, before.Segments[:2])

	gt.NoError(t, uc.Resize(4))
	grown := uc.Current()
	gt.Equal(t, grown.Segments[:2], before.Segments[:2])
	gt.Equal(t, grown.Segments[2].Title, "")
	gt.NotEqual(t, grown.Segments[2].ID, grown.Segments[3].ID)
	gt.NotEqual(t, grown.Segments[2].ID, before.Segments[2].ID)
}

func TestSegmentDurationScenario(t *testing.T) {
	uc := newUseCase(newMockKeyValue())
	uc.SetTitle("Kickoff")
	gt.Equal(t, uc.SegmentDuration(), "10.00")
}

func TestSaveLocalEmptyTitle(t *testing.T) {
	kv := newMockKeyValue()
	uc := newUseCase(kv)

	existing := newUseCase(kv)
	existing.SetTitle("Existing")
	_, err := existing.SaveLocal(context.Background())
	gt.NoError(t, err)
	before := kv.stored()

	uc.SetTitle("   ")
	_, err = uc.SaveLocal(context.Background())
	gt.True(t, errors.Is(err, model.ErrValidation))
	gt.Equal(t, kv.stored(), before)
	gt.Equal(t, uc.Current().ID, model.PlanID(""))
	gt.Equal(t, uc.LocalStatus(), planner.StatusIdle)
}

func TestSaveLocalThenLoad(t *testing.T) {
	ctx := context.Background()
	kv := newMockKeyValue()
	uc := newUseCase(kv)

	uc.SetTitle("Team Meeting")
	gt.NoError(t, uc.SetDuration(15))
	gt.NoError(t, uc.UpdateSegment(1, model.SegmentFieldRelatedLink, "https://example.com"))

	saved, err := uc.SaveLocal(ctx)
	gt.NoError(t, err)
	gt.NotEqual(t, saved.ID, model.PlanID(""))
	gt.Equal(t, uc.Current().ID, saved.ID)

	other := newUseCase(kv)
	loaded, err := other.LoadLocal(ctx, saved.ID)
	gt.NoError(t, err)
	gt.True(t, loaded)
	gt.Equal(t, other.Current(), saved)
}

func TestSaveLocalTwiceUpserts(t *testing.T) {
	ctx := context.Background()
	kv := newMockKeyValue()
	uc := newUseCase(kv)

	uc.SetTitle("First")
	first, err := uc.SaveLocal(ctx)
	gt.NoError(t, err)

	uc.SetTitle("Second")
	second, err := uc.SaveLocal(ctx)
	gt.NoError(t, err)
	gt.Equal(t, second.ID, first.ID)

	plans, err := uc.ListLocal(ctx)
	gt.NoError(t, err)
	gt.A(t, plans).Length(1)
	gt.Equal(t, plans[0].Title, "Second")
}

func TestSaveLocalPersistenceError(t *testing.T) {
	ctx := context.Background()
	kv := newMockKeyValue()
	uc := newUseCase(kv)

	uc.SetTitle("Plan")
	_, err := uc.SaveLocal(ctx)
	gt.NoError(t, err)
	before := kv.stored()

	kv.setErr = goerr.New("quota exceeded")
	uc.SetTitle("Renamed")
	_, err = uc.SaveLocal(ctx)
	gt.True(t, errors.Is(err, model.ErrPersistence))
	gt.Equal(t, kv.stored(), before)
	gt.Equal(t, uc.LocalStatus(), planner.StatusError)

	// the store recovers on the next successful call
	kv.setErr = nil
	_, err = uc.SaveLocal(ctx)
	gt.NoError(t, err)
	gt.Equal(t, uc.LocalStatus(), planner.StatusIdle)
}

func TestLoadLocalMissingIsNoop(t *testing.T) {
	uc := newUseCase(newMockKeyValue())
	uc.SetTitle("Unsaved edits")

	loaded, err := uc.LoadLocal(context.Background(), "missing")
	gt.NoError(t, err)
	gt.False(t, loaded)
	gt.Equal(t, uc.Current().Title, "Unsaved edits")
}

func TestLoadLocalDiscardsEdits(t *testing.T) {
	ctx := context.Background()
	kv := newMockKeyValue()
	uc := newUseCase(kv)

	uc.SetTitle("Saved")
	saved, err := uc.SaveLocal(ctx)
	gt.NoError(t, err)

	uc.NewPlan()
	uc.SetTitle("Draft")
	gt.NoError(t, uc.Resize(7))

	loaded, err := uc.LoadLocal(ctx, saved.ID)
	gt.NoError(t, err)
	gt.True(t, loaded)
	gt.Equal(t, uc.Current(), saved)
}

func TestDeleteLocal(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, confirmer planner.Confirmer) (*planner.UseCase, *model.Plan, *model.Plan) {
		kv := newMockKeyValue()
		uc := newUseCase(kv, planner.WithConfirmer(confirmer))

		uc.SetTitle("Other")
		other, err := uc.SaveLocal(ctx)
		gt.NoError(t, err)

		uc.NewPlan()
		uc.SetTitle("Open")
		open, err := uc.SaveLocal(ctx)
		gt.NoError(t, err)
		return uc, open, other
	}

	t.Run("declined", func(t *testing.T) {
		uc, open, _ := setup(t, confirmAnswer(false))
		deleted, err := uc.DeleteLocal(ctx, open.ID)
		gt.NoError(t, err)
		gt.False(t, deleted)

		plans, err := uc.ListLocal(ctx)
		gt.NoError(t, err)
		gt.A(t, plans).Length(2)
	})

	t.Run("deleting the open plan resets the editor", func(t *testing.T) {
		uc, open, other := setup(t, confirmAnswer(true))
		deleted, err := uc.DeleteLocal(ctx, open.ID)
		gt.NoError(t, err)
		gt.True(t, deleted)

		current := uc.Current()
		gt.Equal(t, current.ID, model.PlanID(""))
		gt.Equal(t, current.Title, "")

		plans, err := uc.ListLocal(ctx)
		gt.NoError(t, err)
		gt.A(t, plans).Length(1)
		gt.Equal(t, plans[0].ID, other.ID)
	})

	t.Run("deleting another plan keeps the editor", func(t *testing.T) {
		uc, open, other := setup(t, confirmAnswer(true))
		deleted, err := uc.DeleteLocal(ctx, other.ID)
		gt.NoError(t, err)
		gt.True(t, deleted)
		gt.Equal(t, uc.Current().ID, open.ID)
	})

	t.Run("confirmation is required", func(t *testing.T) {
		uc := newUseCase(newMockKeyValue())
		_, err := uc.DeleteLocal(ctx, "any")
		gt.Error(t, err)
	})
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase(newMockKeyValue())

	uc.SetTitle("Round Trip")
	gt.NoError(t, uc.Resize(2))
	gt.NoError(t, uc.UpdateSegment(0, model.SegmentFieldSubtitle, "Hello"))
	saved, err := uc.SaveLocal(ctx)
	gt.NoError(t, err)

	exported, found, err := uc.Export(ctx, saved.ID)
	gt.NoError(t, err)
	gt.True(t, found)
	gt.Equal(t, exported.FileName, "round_trip.json")
	gt.S(t, string(exported.Content)).Contains("\n  \"title\": \"Round Trip\"")

	target := newUseCase(newMockKeyValue())
	imported, err := target.Import(ctx, exported.Content)
	gt.NoError(t, err)
	gt.Equal(t, imported, saved)
	gt.Equal(t, target.Current(), saved)

	plans, err := target.ListLocal(ctx)
	gt.NoError(t, err)
	gt.A(t, plans).Length(1)
}

func TestExportMissing(t *testing.T) {
	_, found, err := newUseCase(newMockKeyValue()).Export(context.Background(), "missing")
	gt.NoError(t, err)
	gt.False(t, found)
}

func TestImportWithoutTitle(t *testing.T) {
	ctx := context.Background()
	kv := newMockKeyValue()
	uc := newUseCase(kv)

	uc.SetTitle("Existing")
	_, err := uc.SaveLocal(ctx)
	gt.NoError(t, err)
	uc.SetTitle("Unsaved edit")

	before := uc.Current()
	stored := kv.stored()

	_, err = uc.Import(ctx, []byte(`{"segments": []}`))
	gt.True(t, errors.Is(err, model.ErrFormat))
	gt.Equal(t, uc.Current(), before)
	gt.Equal(t, kv.stored(), stored)
}

func TestImportBlankTitle(t *testing.T) {
	ctx := context.Background()
	kv := newMockKeyValue()
	uc := newUseCase(kv)
	before := uc.Current()

	_, err := uc.Import(ctx, []byte(`{"title": "  ", "segments": []}`))
	gt.True(t, errors.Is(err, model.ErrValidation))
	gt.Equal(t, uc.Current(), before)
	gt.Equal(t, uc.LocalStatus(), planner.StatusIdle)
}

func TestImportPersistenceFailureKeepsEditor(t *testing.T) {
	kv := newMockKeyValue()
	uc := newUseCase(kv)
	uc.SetTitle("Editing")
	before := uc.Current()

	kv.setErr = goerr.New("quota exceeded")
	_, err := uc.Import(context.Background(), []byte(`{"id":"p-1","title":"Imported","totalDurationMinutes":10,"segments":[]}`))
	gt.True(t, errors.Is(err, model.ErrPersistence))
	gt.Equal(t, uc.Current(), before)
}

func TestImportAssignsMissingID(t *testing.T) {
	uc := newUseCase(newMockKeyValue())
	plan, err := uc.Import(context.Background(), []byte(`{"title":"No ID","totalDurationMinutes":5,"segments":[{"title":"Only"}]}`))
	gt.NoError(t, err)
	gt.NotEqual(t, plan.ID, model.PlanID(""))
	gt.Equal(t, uc.Current().ID, plan.ID)
}

func TestFinalize(t *testing.T) {
	uc := newUseCase(newMockKeyValue())

	_, err := uc.Finalize()
	gt.True(t, errors.Is(err, model.ErrValidation))

	uc.SetTitle("Ready")
	plan, err := uc.Finalize()
	gt.NoError(t, err)
	gt.NotEqual(t, plan.ID, model.PlanID(""))
	gt.Equal(t, uc.Current().ID, model.PlanID(""))
}

func TestLocalGuardRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	kv := newMockKeyValue()
	kv.entered = make(chan struct{})
	kv.release = make(chan struct{})
	uc := newUseCase(kv)
	uc.SetTitle("Slow")

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = uc.SaveLocal(ctx)
	}()

	<-kv.entered
	gt.Equal(t, uc.LocalStatus(), planner.StatusLoading)

	_, err := uc.ListLocal(ctx)
	gt.True(t, errors.Is(err, model.ErrBusy))

	close(kv.release)
	wg.Wait()
	gt.NoError(t, firstErr)
	gt.Equal(t, uc.LocalStatus(), planner.StatusIdle)
}
