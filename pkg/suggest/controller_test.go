package suggest

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/fsoft72/ghostwrite/pkg/buffer"
)

// fakeClock fires timers only when the test advances it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and runs every due timer in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()
		next.f()
	}
}

func (c *fakeClock) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

// queueScheduler collects posted work; the test goroutine plays the actor.
type queueScheduler struct {
	ch chan func()
}

func (s *queueScheduler) Post(fn func()) { s.ch <- fn }

func (s *queueScheduler) drain() {
	for {
		select {
		case fn := <-s.ch:
			fn()
		default:
			return
		}
	}
}

func (s *queueScheduler) waitOne(t *testing.T) {
	t.Helper()
	select {
	case fn := <-s.ch:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for posted work")
	}
}

type harness struct {
	t      *testing.T
	buf    *buffer.Buffer
	clock  *fakeClock
	sched  *queueScheduler
	cache  *Cache
	ctrl   *Controller
	events []Event
	preAt  []time.Time
	calls  atomic.Int32
}

func newHarness(t *testing.T, reply func(Request) (string, error), opts ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		buf:   buffer.New(""),
		clock: newFakeClock(),
		sched: &queueScheduler{ch: make(chan func(), 64)},
	}
	settings := DefaultSettings()
	settings.APIKey = "test-key"

	cfg := Config{
		Buffer:    h.buf,
		Scheduler: h.sched,
		Clock:     h.clock,
		Settings:  settings,
		Logger:    log.New(io.Discard),
		Provider: ProviderFunc(func(ctx context.Context, req Request) (string, error) {
			h.calls.Add(1)
			return reply(req)
		}),
		Listener: ListenerFunc(func(ev Event) {
			h.events = append(h.events, ev)
			if _, ok := ev.(PreRequest); ok {
				h.preAt = append(h.preAt, h.clock.Now())
			}
		}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	h.cache = cfg.Cache
	h.ctrl = NewController(cfg)
	t.Cleanup(h.ctrl.Close)
	return h
}

func fixedReply(text string) func(Request) (string, error) {
	return func(Request) (string, error) { return text, nil }
}

func (h *harness) typeText(s string) {
	h.buf.Insert(s)
	h.ctrl.OnInput()
}

// fire advances past the debounce delay and waits for the provider result.
func (h *harness) fire() {
	h.t.Helper()
	h.clock.Advance(h.ctrl.Settings().Delay())
	h.sched.drain()
	if h.ctrl.Loading() {
		h.sched.waitOne(h.t)
	}
}

func (h *harness) ghost() string {
	return h.ctrl.Render().Composition.Ghost
}

func (h *harness) lastOverlay() OverlayChanged {
	h.t.Helper()
	for i := len(h.events) - 1; i >= 0; i-- {
		if ev, ok := h.events[i].(OverlayChanged); ok {
			return ev
		}
	}
	h.t.Fatalf("no overlay event emitted")
	return OverlayChanged{}
}

func (h *harness) eventsOf(kind EventKind) []Event {
	var out []Event
	for _, ev := range h.events {
		if ev.Kind() == kind {
			out = append(out, ev)
		}
	}
	return out
}

func TestController_DebounceCoalescing(t *testing.T) {
	h := newHarness(t, fixedReply("there."))

	for _, ch := range []string{"H", "e", "l", "l", "o"} {
		h.typeText(ch)
		h.clock.Advance(300 * time.Millisecond)
		h.sched.drain()
	}
	lastEdit := h.clock.Now().Add(-300 * time.Millisecond)

	h.clock.Advance(699 * time.Millisecond)
	h.sched.drain()
	if n := h.calls.Load(); n != 0 {
		t.Fatalf("provider calls before the delay elapsed: got %d, want 0", n)
	}

	h.clock.Advance(time.Millisecond)
	h.sched.drain()
	h.sched.waitOne(t)

	if n := h.calls.Load(); n != 1 {
		t.Fatalf("provider calls: got %d, want 1", n)
	}
	if len(h.preAt) != 1 {
		t.Fatalf("pre-request events: got %d, want 1", len(h.preAt))
	}
	if want := lastEdit.Add(time.Second); !h.preAt[0].Equal(want) {
		t.Fatalf("request time: got %v, want %v", h.preAt[0], want)
	}
	pre := h.eventsOf(EventPreRequest)[0].(PreRequest)
	if pre.Prefix != "Hello" || pre.ID == "" {
		t.Fatalf("pre-request: got %+v", pre)
	}
	if got := h.ghost(); got != "there." {
		t.Fatalf("ghost: got %q", got)
	}
}

func TestController_RequestCarriesSettings(t *testing.T) {
	var got Request
	h := newHarness(t, func(r Request) (string, error) {
		got = r
		return "x", nil
	})
	h.ctrl.SetContext("notes")
	h.ctrl.SetModelName("tiny")
	h.typeText("abc def")
	h.buf.SetCaret(3, 5)
	h.fire()

	want := Request{
		Prefix:       "abc",
		Context:      "notes",
		SystemPrompt: DefaultSystemPrompt,
		Endpoint:     DefaultAPIEndpoint,
		Model:        "tiny",
		APIKey:       "test-key",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestController_EditHidesGhost(t *testing.T) {
	h := newHarness(t, fixedReply("World. Again."))
	h.typeText("Hello")
	h.fire()
	if h.ctrl.State() != (State{Showing: true}) {
		t.Fatalf("state: got %v, want Showing(0)", h.ctrl.State())
	}

	h.typeText(" ")
	if h.lastOverlay().Composition.HasGhost() {
		t.Fatalf("overlay still shows ghost after an edit")
	}
	if h.ghost() != "" {
		t.Fatalf("render still shows ghost after an edit")
	}
	if h.ctrl.State().Showing {
		t.Fatalf("state: got %v, want Idle", h.ctrl.State())
	}
}

func TestController_FullAcceptance(t *testing.T) {
	completion := "Hello world. This is Sentence two.\n\nNew paragraph."
	h := newHarness(t, fixedReply(completion))
	h.typeText("Start")
	h.fire()

	wantStates := []string{"Showing(1)", "Showing(2)", "Idle"}
	for i, want := range wantStates {
		if !h.ctrl.Accept() {
			t.Fatalf("accept %d was not consumed", i)
		}
		if got := h.ctrl.State().String(); got != want {
			t.Fatalf("state after accept %d: got %s, want %s", i, got, want)
		}
	}
	if h.ctrl.Accept() {
		t.Fatalf("accept in Idle should not be consumed")
	}

	want := "Start Hello world. This is Sentence two. New paragraph."
	if got := h.buf.Text(); got != want {
		t.Fatalf("buffer: got %q, want %q", got, want)
	}
	if start, end := h.buf.Caret(); start != len([]rune(want)) || end != start {
		t.Fatalf("caret: got (%d,%d), want end of text", start, end)
	}

	changed := h.eventsOf(EventContentChanged)
	if len(changed) != 3 {
		t.Fatalf("content-changed events: got %d, want 3", len(changed))
	}
	if got := changed[2].(ContentChanged).Text; got != want {
		t.Fatalf("last content-changed: got %q", got)
	}
	if h.ghost() != "" {
		t.Fatalf("ghost left after full acceptance: %q", h.ghost())
	}
}

func TestController_AcceptReplacesSelection(t *testing.T) {
	h := newHarness(t, fixedReply("world."))
	h.typeText("Hello ")
	h.fire()

	h.buf.Insert("xyz")
	h.buf.SetCaret(6, 9)
	// no OnInput: the selection edit above only simulates host state at accept time
	if !h.ctrl.Accept() {
		t.Fatalf("accept not consumed")
	}
	if got, want := h.buf.Text(), "Hello world."; got != want {
		t.Fatalf("buffer: got %q, want %q", got, want)
	}
}

func TestController_NavigationDismisses(t *testing.T) {
	keys := []Key{KeyLeft, KeyRight, KeyUp, KeyDown, KeyHome, KeyEnd, KeyPageUp, KeyPageDown}
	for accepted := 0; accepted < 2; accepted++ {
		for _, k := range keys {
			h := newHarness(t, fixedReply("One. Two. Three."))
			h.typeText("Go")
			h.fire()
			for i := 0; i < accepted; i++ {
				h.ctrl.Accept()
			}
			if h.ctrl.HandleKey(k) {
				t.Fatalf("navigation key %v should not be consumed", k)
			}
			if h.ctrl.State().Showing {
				t.Fatalf("state after navigation: got %v, want Idle", h.ctrl.State())
			}
			if h.lastOverlay().Composition.HasGhost() {
				t.Fatalf("overlay shows ghost after navigation from Showing(%d)", accepted)
			}
		}
	}
}

func TestController_EscapeDismisses(t *testing.T) {
	h := newHarness(t, fixedReply("Later."))
	h.typeText("Now")
	h.fire()

	if !h.ctrl.HandleKey(KeyEscape) {
		t.Fatalf("escape while showing should be consumed")
	}
	if h.ctrl.HandleKey(KeyEscape) {
		t.Fatalf("escape in Idle should fall through")
	}
	if h.ctrl.HandleKey(KeyAccept) {
		t.Fatalf("tab in Idle should fall through")
	}
	if h.ctrl.HandleKey(KeyOther) {
		t.Fatalf("other keys are never consumed")
	}
}

func TestController_StaleResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(Request) (string, error) {
		<-release
		return "stale text.", nil
	}, func(c *Config) { c.Cache = NewCache(8) })

	h.typeText("abc")
	h.clock.Advance(time.Second)
	h.sched.drain()
	if !h.ctrl.Loading() {
		t.Fatalf("expected an outstanding request")
	}

	h.typeText("d")
	close(release)
	h.sched.waitOne(t)

	if h.ctrl.State().Showing {
		t.Fatalf("stale completion was applied")
	}
	if h.ctrl.Loading() {
		t.Fatalf("loading not cleared by the stale result")
	}
	if h.cache.Len() != 1 {
		t.Fatalf("stale completion should still be cached, got %d entries", h.cache.Len())
	}
	loading := h.eventsOf(EventLoading)
	if len(loading) != 2 || !loading[0].(Loading).On || loading[1].(Loading).On {
		t.Fatalf("loading events: got %v", loading)
	}
}

func TestController_Veto(t *testing.T) {
	h := newHarness(t, fixedReply("nope."), func(c *Config) {
		c.Vetoer = VetoFunc(func(PreRequest) bool { return false })
	})
	h.typeText("abc")
	h.clock.Advance(time.Second)
	h.sched.drain()

	if len(h.eventsOf(EventPreRequest)) != 1 {
		t.Fatalf("pre-request should still be emitted")
	}
	if h.ctrl.Loading() || len(h.eventsOf(EventLoading)) != 0 {
		t.Fatalf("vetoed request entered the loading state")
	}
	if n := h.calls.Load(); n != 0 {
		t.Fatalf("provider calls: got %d, want 0", n)
	}
}

func TestController_ProviderError(t *testing.T) {
	h := newHarness(t, func(Request) (string, error) {
		return "", errors.New("API request failed: 500")
	})
	h.typeText("abc")
	h.fire()

	errs := h.eventsOf(EventError)
	if len(errs) != 1 {
		t.Fatalf("error events: got %d, want 1", len(errs))
	}
	if got := errs[0].(Error).Message; got != "API request failed: 500" {
		t.Fatalf("error message: got %q", got)
	}
	if h.ctrl.Loading() || h.ctrl.State().Showing {
		t.Fatalf("after an error: loading=%v state=%v", h.ctrl.Loading(), h.ctrl.State())
	}
}

func TestController_StaleErrorStillReported(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(Request) (string, error) {
		<-release
		return "", errors.New("API request failed: 503")
	})

	h.typeText("abc")
	h.clock.Advance(time.Second)
	h.sched.drain()
	if !h.ctrl.Loading() {
		t.Fatalf("expected an outstanding request")
	}

	h.typeText("d")
	close(release)
	h.sched.waitOne(t)

	errs := h.eventsOf(EventError)
	if len(errs) != 1 {
		t.Fatalf("error events: got %d, want 1", len(errs))
	}
	if got := errs[0].(Error).Message; got != "API request failed: 503" {
		t.Fatalf("error message: got %q", got)
	}
	if h.ctrl.Loading() || h.ctrl.State().Showing {
		t.Fatalf("after a stale error: loading=%v state=%v", h.ctrl.Loading(), h.ctrl.State())
	}
}

func TestController_DismissBypassesCache(t *testing.T) {
	h := newHarness(t, fixedReply("is ready."), func(c *Config) { c.Cache = NewCache(16) })

	h.typeText("The release")
	h.fire()
	if got := h.ghost(); got != "is ready." {
		t.Fatalf("ghost: got %q", got)
	}
	if !h.ctrl.Dismiss() {
		t.Fatalf("dismiss should consume")
	}

	h.typeText("x")
	h.buf.DeleteBackward()
	h.ctrl.OnInput()
	h.fire()

	if n := h.calls.Load(); n != 2 {
		t.Fatalf("provider calls after a dismissal: got %d, want 2", n)
	}

	// the bypass covers one request only
	h.buf.DeleteBackward()
	h.ctrl.OnInput()
	h.typeText("e")
	h.fire()
	if n := h.calls.Load(); n != 2 {
		t.Fatalf("provider calls after a cache hit: got %d, want 2", n)
	}
	if got := h.ghost(); got != "is ready." {
		t.Fatalf("ghost after a cache hit: got %q", got)
	}
}

func TestController_CacheHitSkipsProvider(t *testing.T) {
	h := newHarness(t, fixedReply("unused."), func(c *Config) { c.Cache = NewCache(8) })
	h.cache.Put(h.ctrl.Settings().Namespace(), "Hello", "world.")

	h.typeText("Hello")
	h.clock.Advance(time.Second)
	h.sched.drain()

	if n := h.calls.Load(); n != 0 {
		t.Fatalf("provider calls: got %d, want 0", n)
	}
	if len(h.eventsOf(EventLoading)) != 0 {
		t.Fatalf("cache hit should not enter the loading state")
	}
	if got := h.ghost(); got != "world." {
		t.Fatalf("ghost: got %q", got)
	}
}

func TestController_CacheIsNamespacedBySettings(t *testing.T) {
	h := newHarness(t, fixedReply("fresh."), func(c *Config) { c.Cache = NewCache(8) })
	h.cache.Put(h.ctrl.Settings().Namespace(), "Hello", "old.")
	h.ctrl.SetModelName("other-model")

	h.typeText("Hello")
	h.fire()

	if n := h.calls.Load(); n != 1 {
		t.Fatalf("provider calls: got %d, want 1", n)
	}
	if got := h.ghost(); got != "fresh." {
		t.Fatalf("ghost: got %q", got)
	}
}

func TestController_NoAPIKeyNoTimer(t *testing.T) {
	h := newHarness(t, fixedReply("x"), func(c *Config) { c.Settings.APIKey = "" })
	h.typeText("abc")
	if h.ctrl.Pending() || h.clock.active() != 0 {
		t.Fatalf("timer armed without an API key")
	}
}

func TestController_ClearingAPIKeyStopsTimer(t *testing.T) {
	h := newHarness(t, fixedReply("x"))
	h.typeText("abc")
	if !h.ctrl.Pending() {
		t.Fatalf("expected a pending timer")
	}
	h.ctrl.SetAPIKey("")
	if h.ctrl.Pending() || h.clock.active() != 0 {
		t.Fatalf("timer survived clearing the API key")
	}
}

func TestController_BlankBufferSkipped(t *testing.T) {
	h := newHarness(t, fixedReply("x"))
	h.typeText("  \n ")
	h.clock.Advance(time.Second)
	h.sched.drain()
	if len(h.eventsOf(EventPreRequest)) != 0 || h.calls.Load() != 0 {
		t.Fatalf("blank buffer triggered a request")
	}
}

func TestController_SuggestionDelay(t *testing.T) {
	h := newHarness(t, fixedReply("x"))
	h.ctrl.SetSuggestionDelay(2.5)
	if got := h.ctrl.SuggestionDelay(); got != 2.5 {
		t.Fatalf("SuggestionDelay: got %v, want 2.5", got)
	}
	if got := h.ctrl.Settings().Delay(); got != 2500*time.Millisecond {
		t.Fatalf("Delay: got %v, want 2.5s", got)
	}

	h.typeText("abc")
	h.clock.Advance(2499 * time.Millisecond)
	h.sched.drain()
	if len(h.preAt) != 0 {
		t.Fatalf("request fired before 2.5s")
	}
	h.clock.Advance(time.Millisecond)
	h.sched.drain()
	if len(h.preAt) != 1 {
		t.Fatalf("request did not fire at 2.5s")
	}

	h.ctrl.SetSuggestionDelay(0.1)
	if got := h.ctrl.SuggestionDelay(); got != MinSuggestionDelay {
		t.Fatalf("clamped delay: got %v, want %v", got, MinSuggestionDelay)
	}
}

func TestController_Scroll(t *testing.T) {
	h := newHarness(t, fixedReply("x"))
	h.ctrl.OnScroll(40, 3)
	ev := h.lastOverlay()
	if ev.ScrollTop != 40 || ev.ScrollLeft != 3 {
		t.Fatalf("overlay scroll: got (%d,%d), want (40,3)", ev.ScrollTop, ev.ScrollLeft)
	}
	n := len(h.events)
	h.ctrl.OnScroll(40, 3)
	if len(h.events) != n {
		t.Fatalf("unchanged scroll should not emit")
	}
	if o := h.ctrl.Render(); o.ScrollTop != 40 {
		t.Fatalf("render lost the scroll offset: %+v", o)
	}
}

func TestController_ClickRenders(t *testing.T) {
	h := newHarness(t, fixedReply("x"))
	h.buf.SetText("abc def")
	h.buf.SetCaret(3, 3)
	h.ctrl.OnClick()
	c := h.lastOverlay().Composition
	if c.Before != "abc" || c.After != " def" {
		t.Fatalf("overlay after click: got %q|%q", c.Before, c.After)
	}
}

func TestParseKey(t *testing.T) {
	tests := map[string]Key{
		"Tab":       KeyAccept,
		"Escape":    KeyEscape,
		"esc":       KeyEscape,
		"ArrowLeft": KeyLeft,
		"down":      KeyDown,
		"PageUp":    KeyPageUp,
		"pgdown":    KeyPageDown,
		"a":         KeyOther,
		"Enter":     KeyOther,
	}
	for name, want := range tests {
		if got := ParseKey(name); got != want {
			t.Fatalf("ParseKey(%q): got %v, want %v", name, got, want)
		}
	}
}
