package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/timekeeper/pkg/adapter"
	"github.com/m-mizutani/timekeeper/pkg/auth"
	"github.com/m-mizutani/timekeeper/pkg/repository"
	"github.com/m-mizutani/timekeeper/pkg/usecase/generate"
	"github.com/m-mizutani/timekeeper/pkg/usecase/planner"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Local store
	store    string
	dataDir  string
	project  string
	database string

	// Remote store
	remote      string
	bucket      string
	credentials string
	tokenFile   string

	// Generation
	geminiAPIKey   string
	geminiProject  string
	geminiLocation string
	geminiModel    string
}

const (
	storeFile      = "file"
	storeFirestore = "firestore"

	remoteDrive = "drive"
	remoteGCS   = "gcs"
)

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".timekeeper"
	}
	return filepath.Join(dir, "timekeeper")
}

// globalFlags returns logging and local store flags with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("TIMEKEEPER_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("TIMEKEEPER_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Local plan store backend (file, firestore)",
			Value:       storeFile,
			Sources:     cli.EnvVars("TIMEKEEPER_STORE"),
			Destination: &cfg.store,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory of the file store and the OAuth token",
			Value:       defaultDataDir(),
			Sources:     cli.EnvVars("TIMEKEEPER_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID of the Firestore store",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
	}
}

// remoteFlags returns remote store and Google sign-in flags with destination config
func remoteFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "remote",
			Usage:       "Remote plan store backend (drive, gcs)",
			Value:       remoteDrive,
			Sources:     cli.EnvVars("TIMEKEEPER_REMOTE"),
			Destination: &cfg.remote,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket of the gcs remote store",
			Sources:     cli.EnvVars("TIMEKEEPER_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "google-credentials",
			Usage:       "Path to OAuth desktop app credentials JSON for Google Drive",
			Sources:     cli.EnvVars("GOOGLE_OAUTH_CREDENTIALS"),
			Destination: &cfg.credentials,
		},
		&cli.StringFlag{
			Name:        "token-file",
			Usage:       "Path of the stored OAuth token (default: <data-dir>/token.json)",
			Sources:     cli.EnvVars("TIMEKEEPER_TOKEN_FILE"),
			Destination: &cfg.tokenFile,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY", "API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini on Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model used for generation",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// setupLogger attaches the configured logger to ctx
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.NewWithFormat(cfg.logLevel, logging.Format(cfg.logFormat), os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newKeyValue creates the local key-value storage
func (cfg *config) newKeyValue(ctx context.Context) (adapter.KeyValue, error) {
	switch cfg.store {
	case storeFile, "":
		return adapter.NewFileKeyValue(cfg.dataDir)

	case storeFirestore:
		if cfg.project == "" {
			return nil, goerr.New("project is required for firestore store")
		}
		if cfg.database == "" {
			return nil, goerr.New("database is required for firestore store")
		}
		kv, err := adapter.NewFirestoreKeyValue(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create firestore store")
		}
		return kv, nil

	default:
		return nil, goerr.New("unknown store backend", goerr.V("store", cfg.store))
	}
}

// newLocal creates the local plan repository
func (cfg *config) newLocal(ctx context.Context) (*repository.LocalPlans, error) {
	kv, err := cfg.newKeyValue(ctx)
	if err != nil {
		return nil, err
	}
	return repository.NewLocal(kv), nil
}

func (cfg *config) tokenPath() string {
	if cfg.tokenFile != "" {
		return cfg.tokenFile
	}
	return filepath.Join(cfg.dataDir, "token.json")
}

// newAuthSession creates the process auth session and restores a stored
// sign-in. Without credentials the session can never sign in.
func (cfg *config) newAuthSession(ctx context.Context, in io.Reader, out io.Writer) (*auth.Session, error) {
	if cfg.credentials == "" {
		return auth.New(nil), nil
	}

	provider, err := adapter.NewOAuthFromFile(cfg.credentials, cfg.tokenPath(), adapter.WithConsentIO(in, out))
	if err != nil {
		return nil, err
	}

	session := auth.New(provider)
	if _, err := session.Restore(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to restore google sign-in")
	}
	return session, nil
}

// newRemote creates the remote plan repository and the gate guarding it
func (cfg *config) newRemote(ctx context.Context, session *auth.Session) (*repository.RemotePlans, planner.RemoteGate, error) {
	switch cfg.remote {
	case remoteDrive, "":
		client, err := adapter.NewDrive(ctx, session)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRemote(client), session, nil

	case remoteGCS:
		if cfg.bucket == "" {
			return nil, nil, goerr.New("bucket is required for gcs remote store")
		}
		store, err := adapter.NewBucketStore(ctx, cfg.bucket)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRemote(store), nil, nil

	default:
		return nil, nil, goerr.New("unknown remote backend", goerr.V("remote", cfg.remote))
	}
}

// newGenerator creates the content generator. It returns nil when no Gemini
// credentials are configured.
func (cfg *config) newGenerator(ctx context.Context) (planner.Generator, error) {
	opts := []adapter.GeminiOption{}
	if cfg.geminiModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.geminiModel))
	}

	switch {
	case cfg.geminiAPIKey != "":
		client, err := adapter.NewGeminiWithAPIKey(ctx, cfg.geminiAPIKey, opts...)
		if err != nil {
			return nil, err
		}
		return generate.New(client), nil

	case cfg.geminiProject != "":
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
		client, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
		if err != nil {
			return nil, err
		}
		return generate.New(client), nil

	default:
		return nil, nil
	}
}
