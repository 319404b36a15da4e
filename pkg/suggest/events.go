package suggest

// EventKind tags the payload carried by an Event.
type EventKind int

const (
	EventContentChanged EventKind = iota + 1
	EventPreRequest
	EventError
	EventLoading
	EventOverlay
)

func (k EventKind) String() string {
	switch k {
	case EventContentChanged:
		return "content_changed"
	case EventPreRequest:
		return "pre_request"
	case EventError:
		return "error"
	case EventLoading:
		return "loading"
	case EventOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// Event is one signal emitted to the embedding host.
type Event interface {
	Kind() EventKind
}

// ContentChanged is emitted after the engine itself changed the buffer (an accepted fragment).
type ContentChanged struct {
	Text string
}

// PreRequest is emitted right before a completion request. A Vetoer may cancel it.
type PreRequest struct {
	ID           string
	Prefix       string
	Context      string
	Endpoint     string
	Model        string
	SystemPrompt string
}

// Error carries a human-readable provider failure.
type Error struct {
	Message string
}

// Loading toggles while a provider call for the latest request is outstanding.
type Loading struct {
	On bool
}

// OverlayChanged carries the recomputed overlay.
type OverlayChanged struct {
	Composition Composition
	ScrollTop   int
	ScrollLeft  int
}

func (ContentChanged) Kind() EventKind { return EventContentChanged }
func (PreRequest) Kind() EventKind     { return EventPreRequest }
func (Error) Kind() EventKind          { return EventError }
func (Loading) Kind() EventKind        { return EventLoading }
func (OverlayChanged) Kind() EventKind { return EventOverlay }
