package cmds

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-go-golems/angela/pkg/events"
	"github.com/go-go-golems/angela/pkg/server"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat over JSON-RPC on a websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				listen := app.Settings.Listen
				if cmd.Flags().Changed("listen") {
					listen, _ = cmd.Flags().GetString("listen")
				}
				return serve(ctx, app, listen)
			})
		},
	}
	cmd.Flags().String("listen", DefaultListenAddress, "Address to listen on")
	return cmd
}

func serve(ctx context.Context, app *App, listen string) error {
	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()

	sink := events.NewWatermillSink(router.Publisher, events.TopicChat)
	removeChangeListener := app.Store.AddListener(sink)
	defer removeChangeListener()
	removePendingListener := app.Orchestrator.AddPendingListener(sink)
	defer removePendingListener()

	router.AddHandler("log-chat-events", events.TopicChat, router.LogEvents)

	srv := server.NewServer(app.Orchestrator, router, server.WithOriginPatterns(app.Settings.AllowedOrigins...))

	eg, ctx := errgroup.WithContext(ctx)
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	eg.Go(func() error {
		return router.Run(ctx)
	})

	eg.Go(func() error {
		select {
		case <-router.Running():
		case <-ctx.Done():
			return nil
		}

		log.Info().Str("listen", listen).Msg("serving chat on /ws")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "could not serve on %s", listen)
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
