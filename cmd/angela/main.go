package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-go-golems/angela/cmd/angela/cmds"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var rootCmd = &cobra.Command{
	Use:   "angela",
	Short: "angela is a multi-session chat client for OpenRouter models",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// reinitialize the logger because we can now parse --log-level and co
		// from the command line flag
		return initLogger()
	},
	SilenceUsage: true,
}

type logConfig struct {
	WithCaller bool
	Level      string
	LogFormat  string
	LogFile    string
}

func initLogger() error {
	logLevel := viper.GetString("log-level")
	if viper.GetBool("verbose") && logLevel != "trace" {
		logLevel = "debug"
	}

	return InitLogger(&logConfig{
		Level:      logLevel,
		LogFile:    viper.GetString("log-file"),
		LogFormat:  viper.GetString("log-format"),
		WithCaller: viper.GetBool("with-caller"),
	})
}

func InitLogger(config *logConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", config.Level)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logWriter io.Writer
	switch config.LogFormat {
	case "json":
		logWriter = os.Stderr
	case "", "text":
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	default:
		return errors.Errorf("invalid log format %q", config.LogFormat)
	}

	if config.LogFile != "" {
		logWriter = io.MultiWriter(
			logWriter,
			zerolog.ConsoleWriter{
				NoColor: true,
				Out: &lumberjack.Logger{
					Filename:   config.LogFile,
					MaxSize:    10, // megabytes
					MaxBackups: 3,
					MaxAge:     28, //days
				},
			})
	}

	logger := zerolog.New(logWriter).With().Timestamp()
	if config.WithCaller {
		logger = logger.Caller()
	}
	log.Logger = logger.Logger()
	zerolog.SetGlobalLevel(level)

	return nil
}

func initConfig(rootCmd *cobra.Command, configPath string) error {
	viper.SetEnvPrefix("angela")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.angela")

		xdgConfigPath, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(xdgConfigPath + "/angela")
		}
	}

	err := viper.ReadInConfig()
	// a missing config file is fine, everything has a default
	if _, ok := err.(viper.ConfigFileNotFoundError); !ok && err != nil {
		return errors.Wrap(err, "could not read config file")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("openrouter-api-key", "ANGELA_OPENROUTER_API_KEY", "OPENROUTER_API_KEY"); err != nil {
		return err
	}

	cmds.SetDefaults(viper.GetViper())

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return err
	}

	// the flags are not parsed yet, this only picks up the config file and environment
	if err := initLogger(); err != nil {
		return err
	}

	log.Debug().
		Str("config", viper.ConfigFileUsed()).
		Msg("Loaded configuration")

	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("with-caller", false, "Log caller")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (json, text)")
	rootCmd.PersistentFlags().String("log-file", "", "Log file (default: stderr)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.angela/config.yaml)")

	rootCmd.PersistentFlags().String("openrouter-api-key", "", "OpenRouter API key")
	rootCmd.PersistentFlags().String("default-model", "", "Model used when no session state exists")
	rootCmd.PersistentFlags().String("storage-backend", "file", "Where chat state is kept (file, sqlite, memory)")
	rootCmd.PersistentFlags().String("storage-path", "", "Directory for chat state (default $XDG_DATA_HOME/angela)")
	rootCmd.PersistentFlags().String("snapshot-format", "json", "Snapshot format for the file backend (json, yaml)")

	// parse the flags one time just to catch --config
	configFile := ""
	for idx, arg := range os.Args {
		if arg == "--config" && len(os.Args) > idx+1 {
			configFile = os.Args[idx+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			configFile = strings.TrimPrefix(arg, "--config=")
		}
	}

	if err := initConfig(rootCmd, configFile); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(
		cmds.NewChatCommand(),
		cmds.NewServeCommand(),
		cmds.NewSendCommand(),
		cmds.NewEditCommand(),
		cmds.NewSessionsCommand(),
		cmds.NewModelsCommand(),
		cmds.NewPurgeCommand(),
		cmds.NewConfigCommand(),
	)
}
