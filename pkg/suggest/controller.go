package suggest

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/fsoft72/ghostwrite/internal/utils"
)

// DefaultRequestTimeout bounds a single provider call.
const DefaultRequestTimeout = 30 * time.Second

// Config wires a Controller to its collaborators. Buffer, Provider and Scheduler are required.
type Config struct {
	Buffer    Buffer
	Provider  Provider
	Scheduler Scheduler

	Clock    Clock    // SystemClock when nil
	Listener Listener // optional
	Vetoer   Vetoer   // optional
	Cache    *Cache   // optional

	Settings       Settings
	RequestTimeout time.Duration
	Logger         *log.Logger
}

// Controller debounces completion requests for a buffer, owns the suggestion session
// and the overlay, and runs the accept/dismiss state machine.
//
// All methods must be called on the actor behind the configured Scheduler.
type Controller struct {
	buf      Buffer
	provider Provider
	sched    Scheduler
	clock    Clock
	listener Listener
	vetoer   Vetoer
	cache    *Cache
	log      *log.Logger

	settings Settings
	session  Session
	overlay  Overlay
	timer    timerSlot

	// gen moves on every change that makes an outstanding completion stale.
	gen uint64
	// inflight is the gen of the latest issued provider call, 0 when none is outstanding.
	inflight uint64
	loading  bool

	// bypassCache is set by Dismiss: the next request goes to the provider.
	bypassCache bool

	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewController creates a Controller in the Idle state.
func NewController(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Settings == (Settings{}) {
		cfg.Settings = DefaultSettings()
	}
	cfg.Settings.SuggestionDelay = ClampDelay(cfg.Settings.SuggestionDelay)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		buf:      cfg.Buffer,
		provider: cfg.Provider,
		sched:    cfg.Scheduler,
		clock:    cfg.Clock,
		listener: cfg.Listener,
		vetoer:   cfg.Vetoer,
		cache:    cfg.Cache,
		log:      cfg.Logger,
		settings: cfg.Settings,
		timeout:  cfg.RequestTimeout,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.overlay.Update(c.compose())
	return c
}

// OnInput handles a buffer-content-changed signal. The host has already changed the buffer.
func (c *Controller) OnInput() {
	c.gen++
	c.session.Clear()
	c.timer.stop()
	if c.settings.APIKey != "" {
		c.timer.arm(c.clock, c.settings.Delay(), func(seq uint64) {
			c.sched.Post(func() { c.fire(seq) })
		})
	}
	c.render()
}

// OnNavigate handles a caret-navigation signal. Any shown suggestion is dismissed.
// A pending debounce timer keeps running and will use the new caret.
func (c *Controller) OnNavigate() {
	c.gen++
	c.session.Clear()
	c.render()
}

// OnClick recomputes the overlay after a click inside the buffer.
func (c *Controller) OnClick() {
	c.render()
}

// OnScroll mirrors the scroll offsets of the editing surface onto the overlay.
func (c *Controller) OnScroll(top, left int) {
	if c.overlay.ScrollTop == top && c.overlay.ScrollLeft == left {
		return
	}
	c.overlay.Mirror(top, left)
	c.emitOverlay()
}

// Render recomputes and returns the overlay without emitting an event.
func (c *Controller) Render() Overlay {
	c.overlay.Update(c.compose())
	return c.overlay
}

// Session returns a copy of the current suggestion session.
func (c *Controller) Session() Session { return c.session }

// Loading reports whether the latest provider call is still outstanding.
func (c *Controller) Loading() bool { return c.loading }

// Pending reports whether a debounce timer is armed.
func (c *Controller) Pending() bool { return c.timer.armed() }

// Close stops the pending timer and cancels outstanding provider calls.
func (c *Controller) Close() {
	c.timer.stop()
	c.cancel()
}

func (c *Controller) fire(seq uint64) {
	if !c.timer.consume(seq) {
		return
	}

	text := c.buf.Text()
	if utils.IsBlank(text) {
		c.log.Debug("Buffer is empty, skipping completion")
		return
	}
	start, _ := c.buf.Caret()
	prefix := utils.RuneSlice(text, 0, start)
	s := c.settings

	pre := PreRequest{
		ID:           uuid.NewString(),
		Prefix:       prefix,
		Context:      s.Context,
		Endpoint:     s.APIEndpoint,
		Model:        s.ModelName,
		SystemPrompt: s.SystemPrompt,
	}
	c.emit(pre)
	if c.vetoer != nil && !c.vetoer.AllowRequest(pre) {
		c.log.Debug("Completion request vetoed by host", "id", pre.ID)
		return
	}

	gen := c.gen
	namespace := s.Namespace()
	bypass := c.bypassCache
	c.bypassCache = false
	if c.cache != nil && !bypass {
		if hit, ok := c.cache.Get(namespace, prefix); ok {
			c.log.Debug("Serving completion from cache", "id", pre.ID)
			c.apply(gen, hit)
			return
		}
	}

	c.inflight = gen
	c.setLoading(true)

	req := Request{
		Prefix:       prefix,
		Context:      s.Context,
		SystemPrompt: s.SystemPrompt,
		Endpoint:     s.APIEndpoint,
		Model:        s.ModelName,
		APIKey:       s.APIKey,
	}
	c.log.Debug("Requesting completion", "id", pre.ID, "prefix_len", utils.RuneLen(prefix), "model", s.ModelName)

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	started := c.clock.Now()
	go func() {
		defer cancel()
		text, err := c.provider.Complete(ctx, req)
		res := Result{Text: text, Err: err}
		c.sched.Post(func() {
			c.log.Debug("Completion finished", "id", pre.ID, "took", c.clock.Now().Sub(started), "ok", res.OK())
			c.finish(gen, namespace, prefix, res)
		})
	}()
}

func (c *Controller) finish(gen uint64, namespace, prefix string, res Result) {
	latest := gen == c.inflight
	if latest {
		c.inflight = 0
		c.setLoading(false)
	}
	if !res.OK() {
		// failures of the latest request are reported even after further edits
		if !latest && gen != c.gen {
			c.log.Debug("Dropping failure of a superseded request", "requested", gen, "err", res.Err)
			return
		}
		c.log.Warnf("Completion request failed: %v", res.Err)
		c.emit(Error{Message: res.Err.Error()})
		return
	}
	// the prefix still maps to this completion even when the buffer moved on
	if c.cache != nil {
		c.cache.Put(namespace, prefix, res.Text)
	}
	if gen != c.gen {
		c.log.Debug("Discarding stale completion", "requested", gen, "current", c.gen)
		return
	}
	c.apply(gen, res.Text)
}

// apply turns a completion into a fresh session: Idle -> Showing(0).
func (c *Controller) apply(gen uint64, text string) {
	if gen != c.gen {
		return
	}
	if strings.TrimSpace(text) == "" {
		c.log.Debug("Provider returned no completion")
		return
	}
	c.session = NewSession(text)
	c.render()
}

func (c *Controller) setLoading(on bool) {
	if c.loading == on {
		return
	}
	c.loading = on
	c.emit(Loading{On: on})
}

func (c *Controller) compose() Composition {
	start, _ := c.buf.Caret()
	return Compose(c.buf.Text(), start, c.session)
}

func (c *Controller) render() {
	c.overlay.Update(c.compose())
	c.emitOverlay()
}

func (c *Controller) emitOverlay() {
	c.emit(OverlayChanged{
		Composition: c.overlay.Composition,
		ScrollTop:   c.overlay.ScrollTop,
		ScrollLeft:  c.overlay.ScrollLeft,
	})
}

func (c *Controller) emit(ev Event) {
	if c.listener != nil {
		c.listener.Notify(ev)
	}
}
