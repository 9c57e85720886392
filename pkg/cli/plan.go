package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/usecase/planner"
	"github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	var (
		cfg      config
		title    string
		duration int64
		segments int64
		topic    string
		toDrive  bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "title",
			Aliases:     []string{"t"},
			Usage:       "Plan title (overrides a generated title)",
			Destination: &title,
		},
		&cli.IntFlag{
			Name:        "duration",
			Usage:       "Total duration in minutes (5, 10, 15, 30, 45, 60)",
			Value:       model.DefaultDurationMinutes,
			Destination: &duration,
		},
		&cli.IntFlag{
			Name:        "segments",
			Aliases:     []string{"n"},
			Usage:       "Number of segments (1-10)",
			Value:       model.DefaultSegmentCount,
			Destination: &segments,
		},
		&cli.StringFlag{
			Name:        "topic",
			Usage:       "Generate title and segments about this topic with Gemini",
			Destination: &topic,
		},
		&cli.BoolFlag{
			Name:        "remote",
			Usage:       "Also save the plan to the remote store",
			Destination: &toDrive,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, remoteFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "new",
		Usage: "Create and save a new plan",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			w := c.Root().Writer

			local, err := cfg.newLocal(ctx)
			if err != nil {
				return err
			}

			opts := []planner.Option{}
			if topic != "" {
				gen, err := cfg.newGenerator(ctx)
				if err != nil {
					return err
				}
				if gen == nil {
					return goerr.New("gemini-api-key or gemini-project is required to generate a plan")
				}
				opts = append(opts, planner.WithGenerator(gen))
			}
			if toDrive {
				session, err := cfg.newAuthSession(ctx, stdin(c), w)
				if err != nil {
					return err
				}
				remote, gate, err := cfg.newRemote(ctx, session)
				if err != nil {
					return err
				}
				opts = append(opts, planner.WithRemote(remote, gate))
			}

			uc := planner.New(local, opts...)
			if err := uc.SetDuration(int(duration)); err != nil {
				return err
			}
			if err := uc.Resize(int(segments)); err != nil {
				return err
			}
			if topic != "" {
				if _, err := uc.Generate(ctx, topic); err != nil {
					return goerr.Wrap(err, "failed to generate plan")
				}
			}
			if title != "" {
				uc.SetTitle(title)
			}

			saved, err := uc.SaveLocal(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to save plan")
			}
			fmt.Fprintf(w, "Plan %q saved locally: %s\n", saved.Title, saved.ID)

			if toDrive {
				file, err := uc.SaveRemote(ctx)
				if err != nil {
					return goerr.Wrap(err, "failed to save plan remotely")
				}
				fmt.Fprintf(w, "Plan %q saved remotely: %s (%s)\n", saved.Title, file.Name, file.ID)
			}

			printPlan(w, uc.Current())
			return nil
		},
	}
}

func listCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List locally saved plans",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			local, err := cfg.newLocal(ctx)
			if err != nil {
				return err
			}

			plans, err := planner.New(local).ListLocal(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list plans")
			}

			printPlanList(c.Root().Writer, plans)
			return nil
		},
	}
}

func showCommand() *cli.Command {
	var (
		cfg    config
		planID string
		format string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Plan ID to show",
			Sources:     cli.EnvVars("TIMEKEEPER_PLAN_ID"),
			Destination: &planID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Output format (text, json, yaml)",
			Value:       formatText,
			Destination: &format,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show a locally saved plan",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			local, err := cfg.newLocal(ctx)
			if err != nil {
				return err
			}

			uc := planner.New(local)
			found, err := uc.LoadLocal(ctx, model.PlanID(planID))
			if err != nil {
				return goerr.Wrap(err, "failed to load plan")
			}
			if !found {
				return goerr.Wrap(model.ErrNotFound, "plan not found", goerr.V("id", planID))
			}

			return writePlan(c.Root().Writer, uc.Current(), format)
		},
	}
}

func deleteCommand() *cli.Command {
	var (
		cfg    config
		planID string
		yes    bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Plan ID to delete",
			Destination: &planID,
			Required:    true,
		},
		&cli.BoolFlag{
			Name:        "yes",
			Aliases:     []string{"y"},
			Usage:       "Do not ask for confirmation",
			Destination: &yes,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a locally saved plan",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			w := c.Root().Writer

			local, err := cfg.newLocal(ctx)
			if err != nil {
				return err
			}

			var confirmer planner.Confirmer = newPromptConfirmer(stdin(c), w)
			if yes {
				confirmer = planner.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
			}

			uc := planner.New(local, planner.WithConfirmer(confirmer))
			deleted, err := uc.DeleteLocal(ctx, model.PlanID(planID))
			if err != nil {
				return goerr.Wrap(err, "failed to delete plan")
			}

			if deleted {
				fmt.Fprintf(w, "Plan deleted: %s\n", planID)
			} else {
				fmt.Fprintf(w, "Nothing deleted\n")
			}
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	var (
		cfg    config
		planID string
		output string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Plan ID to export",
			Destination: &planID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output file path, '-' for stdout (default: file name derived from the title)",
			Destination: &output,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "export",
		Usage: "Export a locally saved plan as a JSON file",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			w := c.Root().Writer

			local, err := cfg.newLocal(ctx)
			if err != nil {
				return err
			}

			exported, found, err := planner.New(local).Export(ctx, model.PlanID(planID))
			if err != nil {
				return goerr.Wrap(err, "failed to export plan")
			}
			if !found {
				return goerr.Wrap(model.ErrNotFound, "plan not found", goerr.V("id", planID))
			}

			if output == "-" {
				fmt.Fprintf(w, "%s\n", string(exported.Content))
				return nil
			}
			if output == "" {
				output = exported.FileName
			}
			if err := os.WriteFile(output, exported.Content, 0o644); err != nil {
				return goerr.Wrap(err, "failed to write export file", goerr.V("path", output))
			}

			fmt.Fprintf(w, "Plan exported: %s\n", output)
			return nil
		},
	}
}

func importCommand() *cli.Command {
	var (
		cfg   config
		input string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Path to plan JSON file, '-' for stdin",
			Destination: &input,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "import",
		Usage: "Import a plan JSON file into local storage",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			content, err := readInput(stdin(c), input)
			if err != nil {
				return err
			}

			local, err := cfg.newLocal(ctx)
			if err != nil {
				return err
			}

			plan, err := planner.New(local).Import(ctx, content)
			if err != nil {
				return goerr.Wrap(err, "failed to import plan")
			}

			fmt.Fprintf(c.Root().Writer, "Plan %q imported: %s\n", plan.Title, plan.ID)
			return nil
		},
	}
}

func readInput(in io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read stdin")
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read input file", goerr.V("path", path))
	}
	return data, nil
}

func stdin(c *cli.Command) io.Reader {
	if r := c.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}
