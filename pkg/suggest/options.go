package suggest

import (
	"crypto/sha1"
	"encoding/hex"
	"math"
	"time"
)

const (
	// MinSuggestionDelay is the shortest debounce delay, in seconds.
	MinSuggestionDelay = 0.5
	// MaxSuggestionDelay is the longest delay, in seconds, that still fits a time.Duration.
	MaxSuggestionDelay = float64(math.MaxInt64 / int64(time.Second))

	DefaultSuggestionDelay = 1.0
	DefaultAPIEndpoint     = "https://api.openai.com/v1/chat/completions"
	DefaultModelName       = "gpt-3.5-turbo"
	DefaultSystemPrompt    = "You are a helpful writing assistant. Continue the user's text naturally, " +
		"keeping the same style and tone. Reply with the continuation only, never repeat the existing text."
)

// Settings is the resolved configuration of a Controller.
type Settings struct {
	APIKey          string
	SuggestionDelay float64 // seconds
	SystemPrompt    string
	APIEndpoint     string
	ModelName       string
	Context         string
}

// DefaultSettings returns the settings a Controller starts with.
func DefaultSettings() Settings {
	return Settings{
		SuggestionDelay: DefaultSuggestionDelay,
		SystemPrompt:    DefaultSystemPrompt,
		APIEndpoint:     DefaultAPIEndpoint,
		ModelName:       DefaultModelName,
	}
}

// Options is a partial update of Settings. Nil fields keep the current value.
type Options struct {
	APIKey          *string
	SuggestionDelay *float64
	SystemPrompt    *string
	APIEndpoint     *string
	ModelName       *string
	Context         *string
}

// Apply returns s with every non-nil field of o applied.
func (s Settings) Apply(o Options) Settings {
	if o.APIKey != nil {
		s.APIKey = *o.APIKey
	}
	if o.SuggestionDelay != nil {
		s.SuggestionDelay = ClampDelay(*o.SuggestionDelay)
	}
	if o.SystemPrompt != nil {
		s.SystemPrompt = *o.SystemPrompt
	}
	if o.APIEndpoint != nil {
		s.APIEndpoint = *o.APIEndpoint
	}
	if o.ModelName != nil {
		s.ModelName = *o.ModelName
	}
	if o.Context != nil {
		s.Context = *o.Context
	}
	return s
}

// Options returns s as a full update.
func (s Settings) Options() Options {
	return Options{
		APIKey:          &s.APIKey,
		SuggestionDelay: &s.SuggestionDelay,
		SystemPrompt:    &s.SystemPrompt,
		APIEndpoint:     &s.APIEndpoint,
		ModelName:       &s.ModelName,
		Context:         &s.Context,
	}
}

// Delay converts the configured seconds into the scheduling duration, in whole milliseconds.
func (s Settings) Delay() time.Duration {
	ms := math.Round(ClampDelay(s.SuggestionDelay) * 1000)
	return time.Duration(ms) * time.Millisecond
}

// Namespace fingerprints everything besides the prefix that shapes a completion.
// Cached completions are only reused within the same namespace.
func (s Settings) Namespace() string {
	h := sha1.New()
	for _, part := range []string{s.APIEndpoint, s.ModelName, s.SystemPrompt, s.Context} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ClampDelay keeps seconds within [MinSuggestionDelay, MaxSuggestionDelay].
// NaN and infinities fall back to the default.
func ClampDelay(seconds float64) float64 {
	switch {
	case math.IsNaN(seconds), math.IsInf(seconds, 0):
		return DefaultSuggestionDelay
	case seconds < MinSuggestionDelay:
		return MinSuggestionDelay
	case seconds > MaxSuggestionDelay:
		return MaxSuggestionDelay
	}
	return seconds
}

// String returns a pointer to v for Options fields.
func String(v string) *string { return &v }

// Float64 returns a pointer to v for Options fields.
func Float64(v float64) *float64 { return &v }
