package cmds

import (
	"github.com/go-go-golems/angela/pkg/completion"
	"github.com/go-go-golems/angela/pkg/models"
	"github.com/go-go-golems/angela/pkg/persistence"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const DefaultListenAddress = "127.0.0.1:8765"

// Settings is everything the commands read from flags, environment and the config file.
type Settings struct {
	Completion completion.Settings  `yaml:"completion" mapstructure:",squash"`
	Storage    persistence.Settings `yaml:"storage" mapstructure:",squash"`

	DefaultModel string         `yaml:"default_model,omitempty" mapstructure:"default-model"`
	Models       []models.Model `yaml:"models,omitempty" mapstructure:"models"`

	FallbackReply       string `yaml:"fallback_reply,omitempty" mapstructure:"fallback-reply"`
	FallbackResendReply string `yaml:"fallback_resend_reply,omitempty" mapstructure:"fallback-resend-reply"`

	Listen         string   `yaml:"listen,omitempty" mapstructure:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" mapstructure:"allowed-origins"`
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// SetDefaults registers every settings key so that environment variables are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("openrouter-api-key", "")
	v.SetDefault("base-url", completion.DefaultBaseURL)
	v.SetDefault("http-referer", completion.DefaultHTTPReferer)
	v.SetDefault("app-title", completion.DefaultAppTitle)
	v.SetDefault("storage-backend", persistence.BackendFile)
	v.SetDefault("storage-path", "")
	v.SetDefault("snapshot-format", "json")
	v.SetDefault("default-model", "")
	v.SetDefault("fallback-reply", "")
	v.SetDefault("fallback-resend-reply", "")
	v.SetDefault("listen", DefaultListenAddress)
	v.SetDefault("allowed-origins", []string{})
}

func LoadSettings(v *viper.Viper) (*Settings, error) {
	ret := &Settings{}
	if err := v.Unmarshal(ret); err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	return ret, nil
}

// Registry builds the model registry from the configured models, or the built-in list.
func (s *Settings) Registry() (*models.Registry, error) {
	list := s.Models
	if len(list) == 0 {
		list = models.DefaultModels
	}
	registry, err := models.NewRegistry(list, s.DefaultModel)
	if err != nil {
		return nil, errors.Wrap(err, "invalid model configuration")
	}
	return registry, nil
}
