package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/auth"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/usecase/planner"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
)

// shell is the interactive plan editor. Each input line is one command.
type shell struct {
	uc      *planner.UseCase
	session *auth.Session
	out     io.Writer
	spin    bool
}

type shellCommand struct {
	usage string
	help  string
	run   func(sh *shell, ctx context.Context, rest string) error
}

var errQuit = goerr.New("quit")

var shellCommands map[string]shellCommand

func init() {
	shellCommands = map[string]shellCommand{
		"help":       {"help", "Show this help", (*shell).cmdHelp},
		"show":       {"show", "Show the plan being edited", (*shell).cmdShow},
		"new":        {"new", "Discard edits and open a blank plan", (*shell).cmdNew},
		"title":      {"title <text>", "Set the plan title", (*shell).cmdTitle},
		"duration":   {"duration <minutes>", "Set the total duration (5, 10, 15, 30, 45, 60)", (*shell).cmdDuration},
		"segments":   {"segments <count>", "Set the number of segments (1-10)", (*shell).cmdSegments},
		"seg":        {"seg <n> <title|subtitle|mediaUrl|relatedLink> <text>", "Set a field of segment n (1-based)", (*shell).cmdSegment},
		"save":       {"save", "Save the plan locally", (*shell).cmdSave},
		"list":       {"list", "List locally saved plans", (*shell).cmdList},
		"load":       {"load <id>", "Open a locally saved plan", (*shell).cmdLoad},
		"delete":     {"delete <id>", "Delete a locally saved plan", (*shell).cmdDelete},
		"export":     {"export <id> [path]", "Export a saved plan as JSON", (*shell).cmdExport},
		"import":     {"import <path>", "Import a plan JSON file", (*shell).cmdImport},
		"generate":   {"generate <topic>", "Generate title and segments with Gemini", (*shell).cmdGenerate},
		"signin":     {"signin", "Sign in to Google", (*shell).cmdSignIn},
		"signout":    {"signout", "Sign out of Google", (*shell).cmdSignOut},
		"whoami":     {"whoami", "Show the signed-in Google account", (*shell).cmdWhoami},
		"drive-save": {"drive-save", "Save the plan to the remote folder", (*shell).cmdDriveSave},
		"drive-list": {"drive-list", "List plan files in the remote folder", (*shell).cmdDriveList},
		"drive-load": {"drive-load <file-id>", "Open a remote plan file", (*shell).cmdDriveLoad},
		"start":      {"start", "Finalize the plan for the timer", (*shell).cmdStart},
		"quit":       {"quit", "Leave the editor", (*shell).cmdQuit},
	}
}

func newShell(uc *planner.UseCase, session *auth.Session, out io.Writer) *shell {
	return &shell{uc: uc, session: session, out: out}
}

// exec runs one command line. It returns errQuit when the user leaves.
func (sh *shell) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	name, rest, _ := strings.Cut(line, " ")
	cmd, ok := shellCommands[name]
	if !ok {
		return goerr.New("unknown command, type 'help'", goerr.V("command", name))
	}

	return cmd.run(sh, ctx, strings.TrimLeft(rest, " \t"))
}

// splitArgs splits the argument text on whitespace
func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// cutArg returns the first whitespace separated argument of s and the text
// after it with its spacing intact.
func cutArg(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

// busy shows a spinner on slow remote and generation calls
func (sh *shell) busy(label string, fn func() error) error {
	if !sh.spin {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(sh.out))
	s.Suffix = " " + label
	s.Start()
	defer s.Stop()
	return fn()
}

func (sh *shell) cmdHelp(ctx context.Context, rest string) error {
	names := []string{
		"show", "new", "title", "duration", "segments", "seg", "save", "list", "load",
		"delete", "export", "import", "generate", "signin", "signout", "whoami",
		"drive-save", "drive-list", "drive-load", "start", "help", "quit",
	}
	for _, name := range names {
		cmd := shellCommands[name]
		fmt.Fprintf(sh.out, "  %-58s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (sh *shell) cmdShow(ctx context.Context, rest string) error {
	printPlan(sh.out, sh.uc.Current())
	return nil
}

func (sh *shell) cmdNew(ctx context.Context, rest string) error {
	sh.uc.NewPlan()
	fmt.Fprintf(sh.out, "Opened a blank plan\n")
	return nil
}

func (sh *shell) cmdTitle(ctx context.Context, rest string) error {
	sh.uc.SetTitle(rest)
	return nil
}

func atoiArg(args []string, i int, name string) (int, error) {
	if len(args) <= i {
		return 0, goerr.Wrap(model.ErrValidation, "missing argument", goerr.V("name", name))
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, goerr.Wrap(model.ErrValidation, "argument is not a number", goerr.V("name", name), goerr.V("value", args[i]))
	}
	return n, nil
}

func requireArg(args []string, name string) error {
	if len(args) == 0 {
		return goerr.Wrap(model.ErrValidation, "missing argument", goerr.V("name", name))
	}
	return nil
}

func (sh *shell) cmdDuration(ctx context.Context, rest string) error {
	args := splitArgs(rest)
	minutes, err := atoiArg(args, 0, "minutes")
	if err != nil {
		return err
	}
	if err := sh.uc.SetDuration(minutes); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%s min per segment\n", sh.uc.SegmentDuration())
	return nil
}

func (sh *shell) cmdSegments(ctx context.Context, rest string) error {
	args := splitArgs(rest)
	count, err := atoiArg(args, 0, "count")
	if err != nil {
		return err
	}
	if err := sh.uc.Resize(count); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%s min per segment\n", sh.uc.SegmentDuration())
	return nil
}

func (sh *shell) cmdSegment(ctx context.Context, rest string) error {
	index, rest := cutArg(rest)
	n, err := atoiArg(splitArgs(index), 0, "n")
	if err != nil {
		return err
	}
	field, text := cutArg(rest)
	if field == "" {
		return goerr.Wrap(model.ErrValidation, "missing argument", goerr.V("name", "field"))
	}
	return sh.uc.UpdateSegment(n-1, model.SegmentField(field), strings.TrimLeft(text, " \t"))
}

func (sh *shell) cmdSave(ctx context.Context, rest string) error {
	saved, err := sh.uc.SaveLocal(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Plan %q saved locally: %s\n", saved.Title, saved.ID)
	return nil
}

func (sh *shell) cmdList(ctx context.Context, rest string) error {
	plans, err := sh.uc.ListLocal(ctx)
	if err != nil {
		return err
	}
	printPlanList(sh.out, plans)
	return nil
}

func (sh *shell) cmdLoad(ctx context.Context, rest string) error {
	args := splitArgs(rest)
	if err := requireArg(args, "id"); err != nil {
		return err
	}
	found, err := sh.uc.LoadLocal(ctx, model.PlanID(args[0]))
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(sh.out, "No saved plan with id %s\n", args[0])
		return nil
	}
	printPlan(sh.out, sh.uc.Current())
	return nil
}

func (sh *shell) cmdDelete(ctx context.Context, rest string) error {
	args := splitArgs(rest)
	if err := requireArg(args, "id"); err != nil {
		return err
	}
	deleted, err := sh.uc.DeleteLocal(ctx, model.PlanID(args[0]))
	if err != nil {
		return err
	}
	if deleted {
		fmt.Fprintf(sh.out, "Plan deleted: %s\n", args[0])
	} else {
		fmt.Fprintf(sh.out, "Nothing deleted\n")
	}
	return nil
}

func (sh *shell) cmdExport(ctx context.Context, rest string) error {
	args := splitArgs(rest)
	if err := requireArg(args, "id"); err != nil {
		return err
	}
	exported, found, err := sh.uc.Export(ctx, model.PlanID(args[0]))
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(sh.out, "No saved plan with id %s\n", args[0])
		return nil
	}

	path := exported.FileName
	if len(args) > 1 {
		path = args[1]
	}
	if err := os.WriteFile(filepath.Clean(path), exported.Content, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write export file", goerr.V("path", path))
	}
	fmt.Fprintf(sh.out, "Plan exported: %s\n", path)
	return nil
}

func (sh *shell) cmdImport(ctx context.Context, rest string) error {
	path := strings.TrimSpace(rest)
	if path == "" {
		return goerr.Wrap(model.ErrValidation, "missing argument", goerr.V("name", "path"))
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return goerr.Wrap(err, "failed to read import file")
	}
	plan, err := sh.uc.Import(ctx, content)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Plan %q imported: %s\n", plan.Title, plan.ID)
	return nil
}

func (sh *shell) cmdGenerate(ctx context.Context, rest string) error {
	topic := strings.TrimSpace(rest)
	var plan *model.Plan
	err := sh.busy("Generating...", func() error {
		var err error
		plan, err = sh.uc.Generate(ctx, topic)
		return err
	})
	if err != nil {
		return err
	}
	printPlan(sh.out, plan)
	return nil
}

func (sh *shell) cmdSignIn(ctx context.Context, rest string) error {
	if sh.session.Status() == auth.StatusSignedIn {
		fmt.Fprintf(sh.out, "Already signed in as %s\n", sh.session.Profile().Name)
		return nil
	}

	result := <-sh.session.SignIn(ctx)
	if result.Err != nil {
		return result.Err
	}
	fmt.Fprintf(sh.out, "Signed in as %s\n", result.Profile.Name)
	return nil
}

func (sh *shell) cmdSignOut(ctx context.Context, rest string) error {
	if err := sh.session.SignOut(ctx); err != nil {
		logging.From(ctx).Warn("token revocation failed", "error", err)
	}
	fmt.Fprintf(sh.out, "Signed out\n")
	return nil
}

func (sh *shell) cmdWhoami(ctx context.Context, rest string) error {
	profile := sh.session.Profile()
	if profile == nil {
		fmt.Fprintf(sh.out, "Not signed in\n")
		return nil
	}
	fmt.Fprintf(sh.out, "%s <%s>\n", profile.Name, profile.Email)
	return nil
}

func (sh *shell) cmdDriveSave(ctx context.Context, rest string) error {
	return sh.busy("Saving to remote...", func() error {
		file, err := sh.uc.SaveRemote(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "Saved remotely: %s (%s)\n", file.Name, file.ID)
		return nil
	})
}

func (sh *shell) cmdDriveList(ctx context.Context, rest string) error {
	return sh.busy("Listing remote plans...", func() error {
		files, err := sh.uc.ListRemote(ctx)
		if err != nil {
			return err
		}
		printFileList(sh.out, files)
		return nil
	})
}

func (sh *shell) cmdDriveLoad(ctx context.Context, rest string) error {
	args := splitArgs(rest)
	if err := requireArg(args, "file-id"); err != nil {
		return err
	}
	var plan *model.Plan
	err := sh.busy("Loading from remote...", func() error {
		var err error
		plan, err = sh.uc.LoadRemote(ctx, args[0])
		return err
	})
	if err != nil {
		return err
	}
	printPlan(sh.out, plan)
	return nil
}

func (sh *shell) cmdStart(ctx context.Context, rest string) error {
	plan, err := sh.uc.Finalize()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Ready to start %q: %d segments, %s min each\n",
		plan.Title, len(plan.Segments), plan.SegmentDuration())
	return nil
}

func (sh *shell) cmdQuit(ctx context.Context, rest string) error {
	return errQuit
}
