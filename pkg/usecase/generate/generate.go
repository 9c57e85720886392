package generate

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/adapter"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/plan.md
var planPromptRaw string

var planPromptTmpl = template.Must(template.New("plan").Parse(planPromptRaw))

// Generator creates plan content with Gemini
type Generator struct {
	gemini adapter.Gemini
}

// New creates a Generator
func New(gemini adapter.Gemini) *Generator {
	return &Generator{gemini: gemini}
}

// Generate asks the model for a title and segmentCount segments about topic.
// The returned plan has exactly segmentCount segments with fresh IDs; missing
// ones are blank and extra ones are dropped. Only Title and Segments are set.
func (g *Generator) Generate(ctx context.Context, topic string, segmentCount, durationMinutes int) (*model.Plan, error) {
	if segmentCount < 0 {
		segmentCount = 0
	}

	var buf bytes.Buffer
	if err := planPromptTmpl.Execute(&buf, map[string]any{
		"Topic":           topic,
		"DurationMinutes": durationMinutes,
		"SegmentCount":    segmentCount,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute plan prompt template")
	}

	schema, err := adapter.ToGenaiSchema(model.GeneratedPlanSchema(segmentCount))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build response schema")
	}

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	logging.From(ctx).Debug("generating plan", "topic", topic, "segments", segmentCount)
	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(model.Mark(model.ErrRemoteUnavailable, err), "failed to generate plan")
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, goerr.Wrap(model.ErrFormat, "invalid response structure from gemini")
	}

	rawJSON := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	generated, err := model.ParsePlan([]byte(rawJSON))
	if err != nil {
		return nil, goerr.Wrap(err, "AI response was not in the expected format", goerr.V("json", rawJSON))
	}

	segments := make([]*model.Segment, 0, segmentCount)
	for _, s := range generated.Segments {
		if len(segments) == segmentCount {
			break
		}
		segments = append(segments, &model.Segment{
			ID:       model.NewSegmentID(),
			Title:    s.Title,
			Subtitle: s.Subtitle,
		})
	}
	segments = append(segments, model.NewSegments(segmentCount-len(segments))...)

	return &model.Plan{
		Title:    generated.Title,
		Segments: segments,
	}, nil
}
