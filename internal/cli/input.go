// Package cli provides the interactive front ends used for debugging the suggestion engine in a terminal
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/fsoft72/ghostwrite/pkg/buffer"
	"github.com/fsoft72/ghostwrite/pkg/suggest"
)

// Engine holds what both front ends need to run a Controller.
type Engine struct {
	Provider       suggest.Provider
	Cache          *suggest.Cache
	Clock          suggest.Clock
	Settings       suggest.Settings
	RequestTimeout time.Duration
	GhostColor     string
	ShowStatus     bool
	Logger         *log.Logger
}

func (e Engine) logger() *log.Logger {
	if e.Logger == nil {
		return log.Default()
	}
	return e.Logger
}

func (e Engine) ghostStyle() lipgloss.Style {
	s := lipgloss.NewStyle().Faint(true)
	if e.GhostColor != "" {
		s = s.Foreground(lipgloss.Color(e.GhostColor))
	}
	return s
}

func (e Engine) controller(buf *buffer.Buffer, sched suggest.Scheduler, l suggest.Listener) *suggest.Controller {
	return suggest.NewController(suggest.Config{
		Buffer:         buf,
		Provider:       e.Provider,
		Scheduler:      sched,
		Clock:          e.Clock,
		Listener:       l,
		Cache:          e.Cache,
		Settings:       e.Settings,
		RequestTimeout: e.RequestTimeout,
		Logger:         e.logger(),
	})
}

// InputHandler reads lines from a reader and appends each one to a buffer, printing
// the buffer with its ghost text whenever a suggestion shows up.
//
// Lines starting with ':' are commands:
//
//	:accept   insert the next fragment
//	:dismiss  drop the suggestion
//	:show     print the buffer and ghost text
//	:clear    empty the buffer
//	:quit     exit
type InputHandler struct {
	buf   *buffer.Buffer
	ctrl  *suggest.Controller
	loop  *suggest.Loop
	out   io.Writer
	ghost lipgloss.Style
	log   *log.Logger
}

// NewInputHandler creates a line mode handler writing to out.
func NewInputHandler(e Engine, out io.Writer) *InputHandler {
	h := &InputHandler{
		buf:   buffer.New(""),
		loop:  suggest.NewLoop(64),
		out:   out,
		ghost: e.ghostStyle(),
		log:   e.logger(),
	}
	h.ctrl = e.controller(h.buf, h.loop, suggest.ListenerFunc(h.notify))
	return h
}

// Start runs the read loop until in is exhausted, ":quit" is read or ctx is done.
func (h *InputHandler) Start(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go h.loop.Run(ctx)
	defer h.wait(func() { h.ctrl.Close() })

	h.log.Print("GhostWrite CLI")
	h.log.Print("type text and press Enter, :accept takes the suggestion (:quit to exit)")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == ":quit" {
			return nil
		}
		h.wait(func() { h.handleInput(line) })
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// wait runs fn on the loop and blocks until it is done.
func (h *InputHandler) wait(fn func()) {
	done := make(chan struct{})
	h.loop.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-h.loop.Done():
	}
}

func (h *InputHandler) handleInput(line string) {
	switch strings.TrimSpace(line) {
	case ":accept":
		if !h.ctrl.Accept() {
			h.log.Warn("Nothing to accept")
			return
		}
		if !h.ctrl.Session().Visible {
			h.show()
		}
	case ":dismiss":
		if !h.ctrl.Dismiss() {
			h.log.Warn("No suggestion shown")
		}
	case ":show":
		h.show()
	case ":clear":
		h.buf.SetText("")
		h.ctrl.OnInput()
	default:
		if h.buf.Len() > 0 {
			line = "\n" + line
		}
		n := h.buf.Len()
		h.buf.SetCaret(n, n)
		h.buf.Insert(line)
		h.ctrl.OnInput()
	}
}

// show prints the buffer with the ghost text styled in place.
func (h *InputHandler) show() {
	c := h.ctrl.Render().Composition
	fmt.Fprintf(h.out, "%s%s%s\n", c.Before, h.ghost.Render(c.GhostText()), c.After)
}

func (h *InputHandler) notify(ev suggest.Event) {
	switch ev := ev.(type) {
	case suggest.PreRequest:
		h.log.Debug("Requesting completion", "rid", ev.ID, "model", ev.Model)
	case suggest.Error:
		h.log.Errorf("Completion failed: %s", ev.Message)
	case suggest.OverlayChanged:
		if ev.Composition.HasGhost() {
			h.show()
		}
	}
}
