package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/usecase/planner"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const shellPrompt = "timekeeper> "

func editCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, remoteFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:    "edit",
		Aliases: []string{"e"},
		Usage:   "Edit plans in an interactive shell",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			w := c.Root().Writer

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          shellPrompt,
				HistoryFile:     filepath.Join(cfg.dataDir, "history"),
				InterruptPrompt: "^C",
				EOFPrompt:       "quit",
				Stdin:           io.NopCloser(stdin(c)),
				Stdout:          w,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to start readline")
			}
			defer rl.Close()

			local, err := cfg.newLocal(ctx)
			if err != nil {
				return err
			}

			lines := &readlineReader{rl: rl}
			session, err := cfg.newAuthSession(ctx, lines, w)
			if err != nil {
				return err
			}

			opts := []planner.Option{
				planner.WithConfirmer(newPromptConfirmer(lines, w)),
			}

			if remote, gate, err := cfg.newRemote(ctx, session); err != nil {
				logging.From(ctx).Warn("remote storage is unavailable", "error", err)
			} else {
				opts = append(opts, planner.WithRemote(remote, gate))
			}

			gen, err := cfg.newGenerator(ctx)
			if err != nil {
				logging.From(ctx).Warn("content generation is unavailable", "error", err)
			} else if gen != nil {
				opts = append(opts, planner.WithGenerator(gen))
			}

			sh := newShell(planner.New(local, opts...), session, w)
			sh.spin = true

			fmt.Fprintf(w, "Editing a new plan. Type 'help' for commands.\n")
			if profile := session.Profile(); profile != nil {
				fmt.Fprintf(w, "Signed in as %s\n", profile.Name)
			}

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read command")
				}

				if err := sh.exec(ctx, line); err != nil {
					if errors.Is(err, errQuit) {
						return nil
					}
					fmt.Fprintf(w, "Error: %s\n", err.Error())
					logging.From(ctx).Debug("command failed", "error", err)
				}
			}
		},
	}
}

// readlineReader feeds lines typed at the shell prompt to code that reads a
// plain io.Reader, such as the OAuth consent prompt.
type readlineReader struct {
	rl  *readline.Instance
	buf []byte
}

func (r *readlineReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		r.rl.SetPrompt("")
		line, err := r.rl.Readline()
		r.rl.SetPrompt(shellPrompt)
		if err != nil {
			return 0, io.EOF
		}
		r.buf = []byte(line + "\n")
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
