package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type PlanID string

// NewPlanID generates a new unique PlanID
func NewPlanID() PlanID {
	return PlanID(uuid.New().String())
}

type SegmentID string

// NewSegmentID generates a new unique SegmentID
func NewSegmentID() SegmentID {
	return SegmentID(uuid.New().String())
}

const (
	DefaultDurationMinutes = 30
	DefaultSegmentCount    = 3
	MinSegmentCount        = 1
	MaxSegmentCount        = 10
)

// DurationOptions is the fixed set of selectable total durations in minutes.
var DurationOptions = []int{5, 10, 15, 30, 45, 60}

// ValidDuration reports whether minutes is one of DurationOptions
func ValidDuration(minutes int) bool {
	for _, d := range DurationOptions {
		if d == minutes {
			return true
		}
	}
	return false
}

// Plan is a named, ordered agenda of segments with a total duration.
type Plan struct {
	ID                   PlanID     `json:"id" yaml:"id"`
	Title                string     `json:"title" yaml:"title"`
	TotalDurationMinutes int        `json:"totalDurationMinutes" yaml:"totalDurationMinutes"`
	Segments             []*Segment `json:"segments" yaml:"segments"`
}

// Segment is one timed item within a Plan.
type Segment struct {
	ID          SegmentID `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Subtitle    string    `json:"subtitle" yaml:"subtitle"`
	MediaURL    string    `json:"mediaUrl" yaml:"mediaUrl"`
	RelatedLink string    `json:"relatedLink" yaml:"relatedLink"`
}

// SegmentField names an editable text field of a Segment.
type SegmentField string

const (
	SegmentFieldTitle       SegmentField = "title"
	SegmentFieldSubtitle    SegmentField = "subtitle"
	SegmentFieldMediaURL    SegmentField = "mediaUrl"
	SegmentFieldRelatedLink SegmentField = "relatedLink"
)

// Set assigns value to the named field
func (s *Segment) Set(field SegmentField, value string) error {
	switch field {
	case SegmentFieldTitle:
		s.Title = value
	case SegmentFieldSubtitle:
		s.Subtitle = value
	case SegmentFieldMediaURL:
		s.MediaURL = value
	case SegmentFieldRelatedLink:
		s.RelatedLink = value
	default:
		return goerr.Wrap(ErrValidation, "unknown segment field", goerr.V("field", field))
	}
	return nil
}

// NewSegments returns count blank segments, each with a fresh ID
func NewSegments(count int) []*Segment {
	if count <= 0 {
		return []*Segment{}
	}
	segments := make([]*Segment, 0, count)
	for i := 0; i < count; i++ {
		segments = append(segments, &Segment{ID: NewSegmentID()})
	}
	return segments
}

// NewPlan returns a blank plan with default duration and segment count. The
// ID stays empty until the plan is first saved.
func NewPlan() *Plan {
	return &Plan{
		TotalDurationMinutes: DefaultDurationMinutes,
		Segments:             NewSegments(DefaultSegmentCount),
	}
}

// Validate checks the plan can be persisted
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return goerr.Wrap(ErrValidation, "plan title is empty")
	}
	return nil
}

// Resize truncates or pads the segment list to count. Kept segments are not
// modified; appended ones are blank with fresh IDs.
func (p *Plan) Resize(count int) {
	if count < 0 {
		count = 0
	}
	if count <= len(p.Segments) {
		p.Segments = p.Segments[:count:count]
		return
	}
	p.Segments = append(p.Segments, NewSegments(count-len(p.Segments))...)
}

// SegmentDuration returns the per-segment duration in minutes with two decimals
func (p *Plan) SegmentDuration() string {
	if len(p.Segments) == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(p.TotalDurationMinutes)/float64(len(p.Segments)))
}

// FileName returns the safe file name derived from the title, used for
// exports and as the remote lookup key.
func (p *Plan) FileName() string {
	return SafeFileName(p.Title)
}

// SafeFileName replaces every non-alphanumeric ASCII character with '_',
// lower-cases the result and appends ".json".
func SafeFileName(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.ToLower(b.String()) + ".json"
}

// Clone returns a deep copy of the plan
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	cloned := *p
	cloned.Segments = make([]*Segment, len(p.Segments))
	for i, s := range p.Segments {
		if s == nil {
			continue
		}
		seg := *s
		cloned.Segments[i] = &seg
	}
	return &cloned
}

// MarshalPlan encodes the plan as indented JSON, the format used for exports
// and remote files.
func MarshalPlan(p *Plan) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal plan", goerr.V("id", p.ID))
	}
	return data, nil
}
