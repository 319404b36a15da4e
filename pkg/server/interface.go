/*
Package server exposes the suggestion engine to an embedding host over a message stream.

Two transports share one request set: msgpack over stdin/stdout (the default, see Server.Serve) and JSON over a
websocket (see WSHandler). Every connection owns its own buffer, Controller and actor loop; the completion provider
and the completion cache are shared.

# IPC

The host mirrors its editing surface with requests. Each message carries an ID and an op:

	{"id": "1", "op": "hello", "version": "1.0"}
	{"id": "2", "op": "edit", "text": "Dear team, the release", "start": 22}
	{"id": "3", "op": "key", "key": "Tab"}

Every request is answered with a Response carrying the same ID:

	{"id": "3", "status": "ok", "consumed": true, "text": "Dear team, the release is ready.", "state": "Idle"}

Engine events are pushed as notifications, in the order they happen:

	{"event": "pre_request", "rid": "9b1d...", "prefix": "Dear team, the release", "model": "gpt-3.5-turbo"}
	{"event": "loading", "loading": true}
	{"event": "overlay", "overlay": {"before": "Dear team, the release", "ghost": "is ready.", "separator": true}}

# Ops

	hello       protocol version check, constraint ">= 1.0, < 2.0"
	edit        replace the buffer text (and caret), then debounce a request
	caret       move the caret; dismisses a shown suggestion
	click       caret placed by a click; re-renders the overlay
	scroll      mirror the scroll offsets of the editing surface
	key         route a key by DOM or terminal name; "consumed" tells the host to suppress the default action
	accept      insert the next fragment
	dismiss     drop the shown suggestion
	render      return the current overlay
	config      apply settings, optionally persisting them
	get_config  return the effective settings with the API key masked

A min_prefix server setting vetoes completion requests for prefixes shorter than that many characters.
*/
package server

// ProtocolVersion is reported by hello and in the ready message.
const ProtocolVersion = "1.0"

// supportedVersions constrains the protocol version a client may speak.
const supportedVersions = ">= 1.0, < 2.0"

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request is one host message.
type Request struct {
	ID      string `msgpack:"id" json:"id"`
	Op      string `msgpack:"op" json:"op"`
	Version string `msgpack:"version,omitempty" json:"version,omitempty"`

	// edit
	Text *string `msgpack:"text,omitempty" json:"text,omitempty"`
	// edit, caret, click. End defaults to Start.
	Start *int `msgpack:"start,omitempty" json:"start,omitempty"`
	End   *int `msgpack:"end,omitempty" json:"end,omitempty"`

	// scroll
	Top  int `msgpack:"top,omitempty" json:"top,omitempty"`
	Left int `msgpack:"left,omitempty" json:"left,omitempty"`

	// key
	Key string `msgpack:"key,omitempty" json:"key,omitempty"`

	// config
	Config  *ConfigOptions `msgpack:"config,omitempty" json:"config,omitempty"`
	Persist bool           `msgpack:"persist,omitempty" json:"persist,omitempty"`
}

// Response answers exactly one Request.
type Response struct {
	ID       string         `msgpack:"id" json:"id"`
	Status   string         `msgpack:"status" json:"status"`
	Error    string         `msgpack:"error,omitempty" json:"error,omitempty"`
	Version  string         `msgpack:"version,omitempty" json:"version,omitempty"`
	Consumed bool           `msgpack:"consumed,omitempty" json:"consumed,omitempty"`
	Text     *string        `msgpack:"text,omitempty" json:"text,omitempty"`
	State    string         `msgpack:"state,omitempty" json:"state,omitempty"`
	Overlay  *OverlayFrame  `msgpack:"overlay,omitempty" json:"overlay,omitempty"`
	Config   *ConfigOptions `msgpack:"config,omitempty" json:"config,omitempty"`
}

// Notification carries one engine event. Only the fields of that event kind are set.
type Notification struct {
	Event string `msgpack:"event" json:"event"`

	// content_changed
	Text string `msgpack:"text,omitempty" json:"text,omitempty"`

	// pre_request
	RequestID    string `msgpack:"rid,omitempty" json:"rid,omitempty"`
	Prefix       string `msgpack:"prefix,omitempty" json:"prefix,omitempty"`
	Context      string `msgpack:"context,omitempty" json:"context,omitempty"`
	Endpoint     string `msgpack:"endpoint,omitempty" json:"endpoint,omitempty"`
	Model        string `msgpack:"model,omitempty" json:"model,omitempty"`
	SystemPrompt string `msgpack:"system_prompt,omitempty" json:"system_prompt,omitempty"`

	// error
	Message string `msgpack:"message,omitempty" json:"message,omitempty"`

	// loading
	Loading *bool `msgpack:"loading,omitempty" json:"loading,omitempty"`

	// overlay
	Overlay *OverlayFrame `msgpack:"overlay,omitempty" json:"overlay,omitempty"`
}

// OverlayFrame is what the host paints on top of its editing surface.
type OverlayFrame struct {
	Before     string `msgpack:"before" json:"before"`
	Ghost      string `msgpack:"ghost" json:"ghost"`
	After      string `msgpack:"after" json:"after"`
	Separator  bool   `msgpack:"separator" json:"separator"`
	HTML       string `msgpack:"html" json:"html"`
	ScrollTop  int    `msgpack:"scroll_top" json:"scroll_top"`
	ScrollLeft int    `msgpack:"scroll_left" json:"scroll_left"`
}

// ConfigOptions is a partial settings update. Absent fields keep their value.
type ConfigOptions struct {
	APIKey          *string  `msgpack:"api_key,omitempty" json:"api_key,omitempty"`
	SuggestionDelay *float64 `msgpack:"suggestion_delay,omitempty" json:"suggestion_delay,omitempty"`
	SystemPrompt    *string  `msgpack:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	APIEndpoint     *string  `msgpack:"api_endpoint,omitempty" json:"api_endpoint,omitempty"`
	ModelName       *string  `msgpack:"model_name,omitempty" json:"model_name,omitempty"`
	Context         *string  `msgpack:"context,omitempty" json:"context,omitempty"`
}

// Ready is written once when a connection is up.
type Ready struct {
	Status  string `msgpack:"status" json:"status"`
	Version string `msgpack:"version" json:"version"`
}
