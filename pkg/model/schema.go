package model

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
)

var minTitleLength = 1

// PlanDocumentSchema describes the minimum shape accepted when reading a plan
// document from a file or a remote store: a non-empty title and an array of
// segment objects.
func PlanDocumentSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id": {Type: "string"},
			"title": {
				Type:      "string",
				MinLength: &minTitleLength,
			},
			"totalDurationMinutes": {Type: "integer"},
			"segments": {
				Type:  "array",
				Items: &jsonschema.Schema{Type: "object"},
			},
		},
		Required: []string{"title", "segments"},
	}
}

// GeneratedPlanSchema is the structure requested from the generative model
func GeneratedPlanSchema(segmentCount int) *jsonschema.Schema {
	count := segmentCount
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"title": {
				Type:        "string",
				Description: "A creative and engaging title for the conference.",
			},
			"segments": {
				Type:        "array",
				Description: fmt.Sprintf("A list of %d segments.", segmentCount),
				MinItems:    &count,
				MaxItems:    &count,
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"title": {
							Type:        "string",
							Description: "The title of this segment.",
						},
						"subtitle": {
							Type:        "string",
							Description: "A brief, one-sentence key point for this segment.",
						},
					},
					Required: []string{"title", "subtitle"},
				},
			},
		},
		Required: []string{"title", "segments"},
	}
}

var (
	resolvedPlanSchema    *jsonschema.Resolved
	resolvedPlanSchemaErr error
	resolvePlanSchemaOnce sync.Once
)

func planSchema() (*jsonschema.Resolved, error) {
	resolvePlanSchemaOnce.Do(func() {
		resolvedPlanSchema, resolvedPlanSchemaErr = PlanDocumentSchema().Resolve(nil)
	})
	return resolvedPlanSchema, resolvedPlanSchemaErr
}

// ParsePlan decodes a plan document. Any JSON or shape problem is reported as
// ErrFormat.
func ParsePlan(data []byte) (*Plan, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, goerr.Wrap(ErrFormat, "plan is not valid JSON", goerr.V("error", err.Error()))
	}

	schema, err := planSchema()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve plan schema")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, goerr.Wrap(ErrFormat, "plan does not match expected shape", goerr.V("error", err.Error()))
	}

	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, goerr.Wrap(ErrFormat, "failed to decode plan", goerr.V("error", err.Error()))
	}
	if plan.Segments == nil {
		plan.Segments = []*Segment{}
	}

	return &plan, nil
}
