/*
Package suggest is the core of ghostwrite: it owns the inline suggestion lifecycle of a plain-text editing surface.

As the user types, a Controller debounces a request to a completion Provider, splits the returned continuation into
fragments (sentences and paragraphs), and shows the not yet accepted fragments as ghost text right after the caret.
The accept key inserts one fragment at a time; navigation, escape or any edit dismiss the suggestion.

# Actor model

Every Controller method must run on a single logical actor. Deferred work (the debounce timer and provider results)
is never run on a foreign goroutine; it is handed to a Scheduler with Post and executed in arrival order. Loop is the
bundled Scheduler:

	loop := suggest.NewLoop(64)
	go loop.Run(ctx)
	ctrl := suggest.NewController(suggest.Config{Buffer: buf, Provider: p, Scheduler: loop})
	loop.Post(ctrl.OnInput)

# Signals

Hosts observe the engine through a Listener. Events are tagged variants with fixed payloads:
ContentChanged, PreRequest, Error, Loading and OverlayChanged. A PreRequest can be vetoed through a Vetoer.

# Fragments

	Segment("Hello world. This is Sentence two.\n\nNew paragraph.")
	// ["Hello world.", "This is Sentence two.", "New paragraph."]
*/
package suggest

import "context"

// Buffer is the host-owned text surface. Offsets are rune offsets into Text.
// The engine reads and writes it during a call and never keeps a copy.
type Buffer interface {
	Text() string
	// Caret returns the selection range, start <= end. An empty selection is a plain caret.
	Caret() (start, end int)
	SetText(text string)
	SetCaret(start, end int)
}

// Request is what the Controller hands to a Provider for one completion.
type Request struct {
	Prefix       string
	Context      string
	SystemPrompt string
	Endpoint     string
	Model        string
	APIKey       string
}

// Provider produces a continuation for a prompt prefix.
// Implementations must respect context cancellation and deadlines.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

func (f ProviderFunc) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// Scheduler runs functions on the actor that owns a Controller.
type Scheduler interface {
	Post(fn func())
}

// Listener receives every event emitted by a Controller, on the actor.
type Listener interface {
	Notify(ev Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ev Event)

func (f ListenerFunc) Notify(ev Event) { f(ev) }

// Vetoer can cancel a completion request right before it is issued.
type Vetoer interface {
	AllowRequest(req PreRequest) bool
}

// VetoFunc adapts a function to the Vetoer interface.
type VetoFunc func(req PreRequest) bool

func (f VetoFunc) AllowRequest(req PreRequest) bool { return f(req) }

// Result is the outcome of one provider call as seen by the Controller.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }
