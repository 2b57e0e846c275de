package completion

import (
	"github.com/huandu/go-clone"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultHTTPReferer = "http://localhost"
	DefaultAppTitle    = "angela"
)

// Settings configures the chat-completions endpoint.
type Settings struct {
	APIKey      string `yaml:"api_key,omitempty" mapstructure:"openrouter-api-key"`
	BaseURL     string `yaml:"base_url,omitempty" mapstructure:"base-url"`
	HTTPReferer string `yaml:"http_referer,omitempty" mapstructure:"http-referer"`
	AppTitle    string `yaml:"app_title,omitempty" mapstructure:"app-title"`
}

func NewSettings() *Settings {
	return &Settings{
		BaseURL:     DefaultBaseURL,
		HTTPReferer: DefaultHTTPReferer,
		AppTitle:    DefaultAppTitle,
	}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// WithDefaults returns a copy where every empty field except the API key holds its default.
func (s *Settings) WithDefaults() *Settings {
	ret := s.Clone()
	defaults := NewSettings()
	if ret.BaseURL == "" {
		ret.BaseURL = defaults.BaseURL
	}
	if ret.HTTPReferer == "" {
		ret.HTTPReferer = defaults.HTTPReferer
	}
	if ret.AppTitle == "" {
		ret.AppTitle = defaults.AppTitle
	}
	return ret
}
