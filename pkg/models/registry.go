package models

import (
	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/pkg/errors"
)

// Model is one selectable entry of the model picker.
type Model struct {
	Label string `json:"label" yaml:"label" mapstructure:"label"`
	ID    string `json:"modelId" yaml:"modelId" mapstructure:"modelId"`
}

// DefaultModels is the built-in allow-list, in display order.
var DefaultModels = []Model{
	{Label: "Claude 3.7", ID: "anthropic/claude-3.7-sonnet:beta"},
	{Label: "Mistral 24B", ID: chat.DefaultModel},
	{Label: "Gemini 2.5", ID: "google/gemini-2.5-flash-lite-preview-06-17"},
	{Label: "GPT-4.1", ID: "openai/gpt-4.1"},
	{Label: "Grok 3", ID: "x-ai/grok-3-mini"},
	{Label: "Kimi 72B", ID: "moonshotai/kimi-dev-72b:free"},
}

// Registry is an ordered, immutable list of models with a designated default.
type Registry struct {
	models       []Model
	byID         map[string]int
	defaultModel string
}

// NewRegistry validates models and picks defaultID as default. An empty defaultID selects
// chat.DefaultModel when listed, otherwise the first entry.
func NewRegistry(models []Model, defaultID string) (*Registry, error) {
	if len(models) == 0 {
		return nil, errors.New("model registry: no models")
	}

	r := &Registry{
		models: make([]Model, 0, len(models)),
		byID:   map[string]int{},
	}
	for i, m := range models {
		if m.ID == "" {
			return nil, errors.Errorf("model registry: entry %d has no model id", i)
		}
		if _, ok := r.byID[m.ID]; ok {
			return nil, errors.Errorf("model registry: duplicate model id %q", m.ID)
		}
		if m.Label == "" {
			m.Label = m.ID
		}
		r.byID[m.ID] = len(r.models)
		r.models = append(r.models, m)
	}

	switch {
	case defaultID != "":
		if !r.Contains(defaultID) {
			return nil, errors.Errorf("model registry: default model %q is not listed", defaultID)
		}
		r.defaultModel = defaultID
	case r.Contains(chat.DefaultModel):
		r.defaultModel = chat.DefaultModel
	default:
		r.defaultModel = r.models[0].ID
	}

	return r, nil
}

// NewDefaultRegistry returns the registry of DefaultModels.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultModels, chat.DefaultModel)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) List() []Model {
	return append([]Model(nil), r.models...)
}

func (r *Registry) Lookup(id string) (Model, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Model{}, false
	}
	return r.models[i], true
}

func (r *Registry) Contains(id string) bool {
	_, ok := r.byID[id]
	return ok
}

func (r *Registry) Default() string {
	return r.defaultModel
}

// Next returns the model after id, wrapping around. Unknown ids yield the first model.
func (r *Registry) Next(id string) Model {
	i, ok := r.byID[id]
	if !ok {
		return r.models[0]
	}
	return r.models[(i+1)%len(r.models)]
}

// Label returns the display label of id, or id itself when it is not listed.
func (r *Registry) Label(id string) string {
	if m, ok := r.Lookup(id); ok {
		return m.Label
	}
	return id
}
