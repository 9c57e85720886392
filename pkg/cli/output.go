package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/adapter"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func printPlan(w io.Writer, plan *model.Plan) {
	title := plan.Title
	if title == "" {
		title = "(untitled)"
	}
	id := string(plan.ID)
	if id == "" {
		id = "(not saved)"
	}

	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "  id:       %s\n", id)
	fmt.Fprintf(w, "  duration: %d min, %d segments, %s min each\n",
		plan.TotalDurationMinutes, len(plan.Segments), plan.SegmentDuration())

	for i, s := range plan.Segments {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, orDash(s.Title))
		if s.Subtitle != "" {
			fmt.Fprintf(w, "      %s\n", s.Subtitle)
		}
		if s.MediaURL != "" {
			fmt.Fprintf(w, "      media: %s\n", s.MediaURL)
		}
		if s.RelatedLink != "" {
			fmt.Fprintf(w, "      link:  %s\n", s.RelatedLink)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printPlanList(w io.Writer, plans []*model.Plan) {
	if len(plans) == 0 {
		fmt.Fprintf(w, "No saved plans\n")
		return
	}
	for _, p := range plans {
		fmt.Fprintf(w, "%s\t%s\t%d min\t%d segments\n", p.ID, p.Title, p.TotalDurationMinutes, len(p.Segments))
	}
}

func writePlan(w io.Writer, plan *model.Plan, format string) error {
	switch format {
	case formatText, "":
		printPlan(w, plan)
		return nil

	case formatJSON:
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return goerr.Wrap(err, "failed to marshal plan")
		}
		fmt.Fprintf(w, "%s\n", string(data))
		return nil

	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return goerr.Wrap(err, "failed to encode plan as yaml")
		}
		return enc.Close()

	default:
		return goerr.New("unknown output format", goerr.V("format", format))
	}
}

// promptConfirmer asks a yes/no question on a line-based reader
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (p *promptConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", message)
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, goerr.Wrap(err, "failed to read answer")
	}
	return isYes(line), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func printFileList(w io.Writer, files []*adapter.RemoteFile) {
	if len(files) == 0 {
		fmt.Fprintf(w, "No remote plans\n")
		return
	}
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\n", f.ID, f.Name)
	}
}
