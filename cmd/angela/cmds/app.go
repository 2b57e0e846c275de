package cmds

import (
	"context"

	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/go-go-golems/angela/pkg/completion"
	"github.com/go-go-golems/angela/pkg/models"
	"github.com/go-go-golems/angela/pkg/orchestrator"
	"github.com/go-go-golems/angela/pkg/persistence"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App bundles the components every command works with.
type App struct {
	Settings     *Settings
	Registry     *models.Registry
	Backend      persistence.Backend
	Store        *chat.Store
	Orchestrator *orchestrator.Orchestrator
}

type AppOption func(*appOptions)

type appOptions struct {
	client  completion.Client
	backend persistence.Backend
}

// WithClient replaces the OpenRouter client.
func WithClient(client completion.Client) AppOption {
	return func(o *appOptions) {
		o.client = client
	}
}

// WithBackend replaces the backend selected by the storage settings.
func WithBackend(backend persistence.Backend) AppOption {
	return func(o *appOptions) {
		o.backend = backend
	}
}

// NewApp loads the persisted state and wires store, completion client and orchestrator.
func NewApp(ctx context.Context, settings *Settings, options ...AppOption) (*App, error) {
	opts := &appOptions{}
	for _, option := range options {
		option(opts)
	}

	registry, err := settings.Registry()
	if err != nil {
		return nil, err
	}

	codec, err := persistence.NewCodec(settings.Storage.Format)
	if err != nil {
		return nil, err
	}
	backend := opts.backend
	if backend == nil {
		backend, codec, err = persistence.Open(settings.Storage)
		if err != nil {
			return nil, errors.Wrap(err, "could not open chat storage")
		}
	}

	client := opts.client
	if client == nil {
		client, err = completion.NewOpenAIClient(&settings.Completion)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
	}

	adapter := persistence.NewAdapter(backend,
		persistence.WithCodec(codec),
		persistence.WithDefaultModel(registry.Default()),
	)
	// nothing usable on disk starts from a single default session
	initial, ok := adapter.Load(ctx)

	store := chat.NewStore(initial,
		chat.WithSaver(adapter),
		chat.WithDefaultModel(registry.Default()),
	)
	orch := orchestrator.New(store, client,
		orchestrator.WithRegistry(registry),
		orchestrator.WithFallbackReply(settings.FallbackReply),
		orchestrator.WithFallbackResendReply(settings.FallbackResendReply),
	)
	orch.EnsureActiveSession(ctx)

	log.Debug().
		Str("storage_backend", settings.Storage.Backend).
		Bool("restored", ok).
		Int("sessions", len(store.Sessions())).
		Str("active_model", store.ActiveModel()).
		Msg("chat state ready")

	return &App{
		Settings:     settings,
		Registry:     registry,
		Backend:      backend,
		Store:        store,
		Orchestrator: orch,
	}, nil
}

func (a *App) Close() error {
	return a.Backend.Close()
}

// runWithApp builds the App from viper for the duration of f.
func runWithApp(cmd *cobra.Command, f func(ctx context.Context, app *App) error) error {
	settings, err := LoadSettings(viper.GetViper())
	if err != nil {
		return err
	}
	app, err := NewApp(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("could not close chat storage")
		}
	}()

	return f(cmd.Context(), app)
}
