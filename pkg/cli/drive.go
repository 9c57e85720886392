package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/model"
	"github.com/m-mizutani/timekeeper/pkg/usecase/planner"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func driveCommand() *cli.Command {
	return &cli.Command{
		Name:  "drive",
		Usage: "Sign in to Google and sync plans with the remote folder",
		Commands: []*cli.Command{
			driveLoginCommand(),
			driveLogoutCommand(),
			driveListCommand(),
			drivePushCommand(),
			drivePullCommand(),
		},
	}
}

func remoteCommandFlags(cfg *config) []cli.Flag {
	flags := globalFlags(cfg)
	return append(flags, remoteFlags(cfg)...)
}

// remotePlanner builds a planner with both stores for remote subcommands
func (cfg *config) remotePlanner(ctx context.Context, c *cli.Command) (*planner.UseCase, error) {
	local, err := cfg.newLocal(ctx)
	if err != nil {
		return nil, err
	}

	session, err := cfg.newAuthSession(ctx, stdin(c), c.Root().Writer)
	if err != nil {
		return nil, err
	}

	remote, gate, err := cfg.newRemote(ctx, session)
	if err != nil {
		return nil, err
	}

	return planner.New(local, planner.WithRemote(remote, gate)), nil
}

func driveLoginCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "login",
		Usage: "Sign in to Google and store the token",
		Flags: remoteCommandFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			w := c.Root().Writer

			session, err := cfg.newAuthSession(ctx, stdin(c), w)
			if err != nil {
				return err
			}
			if profile := session.Profile(); profile != nil {
				fmt.Fprintf(w, "Already signed in as %s <%s>\n", profile.Name, profile.Email)
				return nil
			}

			result := <-session.SignIn(ctx)
			if result.Err != nil {
				return goerr.Wrap(result.Err, "failed to sign in")
			}

			fmt.Fprintf(w, "Signed in as %s <%s>\n", result.Profile.Name, result.Profile.Email)
			return nil
		},
	}
}

func driveLogoutCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "logout",
		Usage: "Revoke and forget the stored Google token",
		Flags: remoteCommandFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			session, err := cfg.newAuthSession(ctx, stdin(c), c.Root().Writer)
			if err != nil {
				return err
			}
			if err := session.SignOut(ctx); err != nil {
				logging.From(ctx).Warn("token revocation failed", "error", err)
			}

			fmt.Fprintf(c.Root().Writer, "Signed out\n")
			return nil
		},
	}
}

func driveListCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List plan files in the remote folder",
		Flags: remoteCommandFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			uc, err := cfg.remotePlanner(ctx, c)
			if err != nil {
				return err
			}

			files, err := uc.ListRemote(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list remote plans")
			}

			printFileList(c.Root().Writer, files)
			return nil
		},
	}
}

func drivePushCommand() *cli.Command {
	var (
		cfg    config
		planID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Local plan ID to save remotely",
			Destination: &planID,
			Required:    true,
		},
	}
	flags = append(flags, remoteCommandFlags(&cfg)...)

	return &cli.Command{
		Name:  "push",
		Usage: "Save a locally saved plan to the remote folder",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			uc, err := cfg.remotePlanner(ctx, c)
			if err != nil {
				return err
			}

			found, err := uc.LoadLocal(ctx, model.PlanID(planID))
			if err != nil {
				return goerr.Wrap(err, "failed to load plan")
			}
			if !found {
				return goerr.Wrap(model.ErrNotFound, "plan not found", goerr.V("id", planID))
			}

			file, err := uc.SaveRemote(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to save plan remotely")
			}

			fmt.Fprintf(c.Root().Writer, "Saved remotely: %s (%s)\n", file.Name, file.ID)
			return nil
		},
	}
}

func drivePullCommand() *cli.Command {
	var (
		cfg    config
		fileID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file-id",
			Usage:       "Remote file ID to load",
			Destination: &fileID,
			Required:    true,
		},
	}
	flags = append(flags, remoteCommandFlags(&cfg)...)

	return &cli.Command{
		Name:  "pull",
		Usage: "Load a remote plan file and save it locally",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			uc, err := cfg.remotePlanner(ctx, c)
			if err != nil {
				return err
			}

			if _, err := uc.LoadRemote(ctx, fileID); err != nil {
				return goerr.Wrap(err, "failed to load remote plan")
			}

			saved, err := uc.SaveLocal(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to save plan locally")
			}

			fmt.Fprintf(c.Root().Writer, "Plan %q saved locally: %s\n", saved.Title, saved.ID)
			return nil
		},
	}
}
