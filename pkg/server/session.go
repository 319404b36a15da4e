package server

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-version"

	"github.com/fsoft72/ghostwrite/internal/utils"
	"github.com/fsoft72/ghostwrite/pkg/buffer"
	"github.com/fsoft72/ghostwrite/pkg/config"
	"github.com/fsoft72/ghostwrite/pkg/suggest"
)

// ErrUnsupportedVersion is reported by hello for a protocol version outside the supported range.
var ErrUnsupportedVersion = errors.New("unsupported protocol version")

var versionConstraint = version.MustConstraints(version.NewConstraint(supportedVersions))

// sendFunc writes one message to the connection.
type sendFunc func(msg any) error

// session is one connection: a buffer, its Controller and the actor loop they live on.
// Everything except post runs on the loop.
type session struct {
	id        string
	srv       *Server
	buf       *buffer.Buffer
	ctrl      *suggest.Controller
	loop      *suggest.Loop
	send      sendFunc
	minPrefix int
	log       *log.Logger
}

func (s *session) post(fn func()) { s.loop.Post(fn) }

// Notify implements suggest.Listener.
func (s *session) Notify(ev suggest.Event) {
	n := Notification{Event: ev.Kind().String()}
	switch ev := ev.(type) {
	case suggest.ContentChanged:
		n.Text = ev.Text
	case suggest.PreRequest:
		n.RequestID = ev.ID
		n.Prefix = ev.Prefix
		n.Context = ev.Context
		n.Endpoint = ev.Endpoint
		n.Model = ev.Model
		n.SystemPrompt = ev.SystemPrompt
	case suggest.Error:
		n.Message = ev.Message
	case suggest.Loading:
		on := ev.On
		n.Loading = &on
	case suggest.OverlayChanged:
		n.Overlay = frame(suggest.Overlay{
			Composition: ev.Composition,
			ScrollTop:   ev.ScrollTop,
			ScrollLeft:  ev.ScrollLeft,
		})
	}
	if err := s.send(n); err != nil {
		s.log.Debug("Dropping notification", "event", n.Event, "err", err)
	}
}

// AllowRequest implements suggest.Vetoer: prefixes shorter than min_prefix never reach the provider.
func (s *session) AllowRequest(pre suggest.PreRequest) bool {
	if utils.RuneLen(pre.Prefix) < s.minPrefix {
		s.log.Debug("Prefix below min_prefix, skipping request", "len", utils.RuneLen(pre.Prefix), "min", s.minPrefix)
		return false
	}
	return true
}

func (s *session) reply(resp Response) {
	if err := s.send(resp); err != nil {
		s.log.Errorf("Failed to send response %s: %v", resp.ID, err)
	}
}

// handle runs one request on the loop and answers it.
func (s *session) handle(req Request) {
	resp, err := s.dispatch(req)
	resp.ID = req.ID
	if err != nil {
		s.log.Debug("Request failed", "op", req.Op, "err", err)
		resp.Status = StatusError
		resp.Error = err.Error()
	} else {
		resp.Status = StatusOK
	}
	s.reply(resp)
}

func (s *session) dispatch(req Request) (Response, error) {
	switch req.Op {
	case "hello":
		return s.hello(req)
	case "edit":
		if req.Text == nil {
			return Response{}, fmt.Errorf("edit: missing 'text'")
		}
		s.buf.SetText(*req.Text)
		if req.Start != nil {
			s.setCaret(req)
		} else {
			n := s.buf.Len()
			s.buf.SetCaret(n, n)
		}
		s.ctrl.OnInput()
		return s.overlay(), nil
	case "caret":
		if req.Start == nil {
			return Response{}, fmt.Errorf("caret: missing 'start'")
		}
		s.setCaret(req)
		s.ctrl.OnNavigate()
		return s.overlay(), nil
	case "click":
		if req.Start != nil {
			s.setCaret(req)
		}
		s.ctrl.OnClick()
		return s.overlay(), nil
	case "scroll":
		s.ctrl.OnScroll(req.Top, req.Left)
		return Response{}, nil
	case "key":
		consumed := s.ctrl.HandleKey(suggest.ParseKey(req.Key))
		return s.afterAccept(consumed), nil
	case "accept":
		return s.afterAccept(s.ctrl.Accept()), nil
	case "dismiss":
		return s.afterAccept(s.ctrl.Dismiss()), nil
	case "render":
		return s.overlay(), nil
	case "config":
		if req.Config == nil {
			return Response{}, fmt.Errorf("config: missing 'config'")
		}
		if err := s.configure(*req.Config, req.Persist); err != nil {
			return Response{}, err
		}
		return Response{Config: optionsOf(s.ctrl.Settings())}, nil
	case "get_config":
		return Response{Config: optionsOf(s.ctrl.Settings())}, nil
	default:
		return Response{}, fmt.Errorf("unknown op: %q", req.Op)
	}
}

func (s *session) hello(req Request) (Response, error) {
	v, err := version.NewVersion(req.Version)
	if err != nil {
		return Response{Version: ProtocolVersion}, fmt.Errorf("hello: invalid version %q: %w", req.Version, err)
	}
	if !versionConstraint.Check(v) {
		return Response{Version: ProtocolVersion}, fmt.Errorf("hello: %w: %s (supported %s)", ErrUnsupportedVersion, v, supportedVersions)
	}
	s.log.Debug("Client connected", "session", s.id, "version", v.String())
	return Response{Version: ProtocolVersion}, nil
}

func (s *session) setCaret(req Request) {
	start := *req.Start
	end := start
	if req.End != nil {
		end = *req.End
	}
	s.buf.SetCaret(start, end)
}

func (s *session) overlay() Response {
	return Response{
		Overlay: frame(s.ctrl.Render()),
		State:   s.ctrl.State().String(),
	}
}

func (s *session) afterAccept(consumed bool) Response {
	text := s.buf.Text()
	return Response{
		Consumed: consumed,
		Text:     &text,
		State:    s.ctrl.State().String(),
	}
}

// configure applies o to the controller and, when persist is set, to the config file and the credential store.
func (s *session) configure(o ConfigOptions, persist bool) error {
	opts := o.options()
	s.ctrl.Configure(opts)
	if !persist {
		return nil
	}
	return s.srv.persist(opts)
}

func frame(o suggest.Overlay) *OverlayFrame {
	c := o.Composition
	return &OverlayFrame{
		Before:     c.Before,
		Ghost:      c.Ghost,
		After:      c.After,
		Separator:  c.Separator,
		HTML:       c.HTML(),
		ScrollTop:  o.ScrollTop,
		ScrollLeft: o.ScrollLeft,
	}
}

func (o ConfigOptions) options() suggest.Options {
	return suggest.Options{
		APIKey:          o.APIKey,
		SuggestionDelay: o.SuggestionDelay,
		SystemPrompt:    o.SystemPrompt,
		APIEndpoint:     o.APIEndpoint,
		ModelName:       o.ModelName,
		Context:         o.Context,
	}
}

// optionsOf reports settings to a client. The API key is masked.
func optionsOf(s suggest.Settings) *ConfigOptions {
	masked := config.MaskKey(s.APIKey)
	return &ConfigOptions{
		APIKey:          &masked,
		SuggestionDelay: &s.SuggestionDelay,
		SystemPrompt:    &s.SystemPrompt,
		APIEndpoint:     &s.APIEndpoint,
		ModelName:       &s.ModelName,
		Context:         &s.Context,
	}
}
