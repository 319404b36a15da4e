package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rivo/uniseg"

	"github.com/fsoft72/ghostwrite/pkg/buffer"
	"github.com/fsoft72/ghostwrite/pkg/suggest"
)

// KeyMap defines the editor key bindings.
type KeyMap struct {
	Accept, Dismiss       key.Binding
	Left, Right, Up, Down key.Binding
	Home, End             key.Binding
	PageUp, PageDown      key.Binding

	Backspace, Delete key.Binding
	Enter             key.Binding
	Quit              key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Accept:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "accept")),
		Dismiss: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),

		Left:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "left")),
		Right: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "right")),
		Up:    key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:  key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),

		Home:     key.NewBinding(key.WithKeys("home", "ctrl+a"), key.WithHelp("home", "line start")),
		End:      key.NewBinding(key.WithKeys("end", "ctrl+e"), key.WithHelp("end", "line end")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "page down")),

		Backspace: key.NewBinding(key.WithKeys("backspace", "ctrl+h"), key.WithHelp("backspace", "delete left")),
		Delete:    key.NewBinding(key.WithKeys("delete"), key.WithHelp("del", "delete right")),
		Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "newline")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Accept, k.Dismiss, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Accept, k.Dismiss},
		{k.Left, k.Right, k.Up, k.Down, k.Home, k.End, k.PageUp, k.PageDown},
		{k.Backspace, k.Delete, k.Enter, k.Quit},
	}
}

// Styles are the lipgloss styles of the editor.
type Styles struct {
	Ghost  lipgloss.Style
	Cursor lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
}

func defaultStyles(e Engine) Styles {
	return Styles{
		Ghost:  e.ghostStyle(),
		Cursor: lipgloss.NewStyle().Reverse(true),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

// postMsg carries a function posted to the controller. It runs inside Update.
type postMsg struct{ fn func() }

// teaScheduler makes the Bubble Tea event loop the controller's actor.
type teaScheduler struct {
	send func(tea.Msg)
}

func (s *teaScheduler) Post(fn func()) { s.send(postMsg{fn: fn}) }

// Model is a small Bubble Tea text editor that shows suggestions as faint ghost text after the caret.
type Model struct {
	buf    *buffer.Buffer
	ctrl   *suggest.Controller
	sched  *teaScheduler
	keys   KeyMap
	styles Styles
	help   help.Model

	width, height int
	showStatus    bool
	loading       bool
	errMsg        string
}

// NewModel creates the editor model. Its scheduler must be connected to a program before input arrives.
func NewModel(e Engine) *Model {
	m := &Model{
		buf:        buffer.New(""),
		sched:      &teaScheduler{send: func(tea.Msg) {}},
		keys:       DefaultKeyMap(),
		styles:     defaultStyles(e),
		help:       help.New(),
		showStatus: e.ShowStatus,
	}
	m.ctrl = e.controller(m.buf, m.sched, suggest.ListenerFunc(m.notify))
	return m
}

// RunTUI runs the editor on the terminal until it quits or ctx is done.
func RunTUI(ctx context.Context, e Engine) error {
	m := NewModel(e)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.sched.send = p.Send
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case postMsg:
		msg.fn()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.follow()
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.ctrl.Close()
			return m, tea.Quit
		}
		m.handleKey(msg)
		m.follow()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Accept):
		m.ctrl.HandleKey(suggest.KeyAccept)
	case key.Matches(msg, m.keys.Dismiss):
		m.ctrl.HandleKey(suggest.KeyEscape)
	case key.Matches(msg, m.keys.Left):
		m.navigate(buffer.DirLeft, 1)
	case key.Matches(msg, m.keys.Right):
		m.navigate(buffer.DirRight, 1)
	case key.Matches(msg, m.keys.Up):
		m.navigate(buffer.DirUp, 1)
	case key.Matches(msg, m.keys.Down):
		m.navigate(buffer.DirDown, 1)
	case key.Matches(msg, m.keys.Home):
		m.navigate(buffer.DirHome, 1)
	case key.Matches(msg, m.keys.End):
		m.navigate(buffer.DirEnd, 1)
	case key.Matches(msg, m.keys.PageUp):
		m.navigate(buffer.DirUp, m.page())
	case key.Matches(msg, m.keys.PageDown):
		m.navigate(buffer.DirDown, m.page())
	case key.Matches(msg, m.keys.Backspace):
		if m.buf.DeleteBackward() {
			m.ctrl.OnInput()
		}
	case key.Matches(msg, m.keys.Delete):
		if m.buf.DeleteForward() {
			m.ctrl.OnInput()
		}
	case key.Matches(msg, m.keys.Enter):
		m.insert("\n")
	case msg.Type == tea.KeySpace:
		m.insert(" ")
	case msg.Type == tea.KeyRunes:
		m.insert(string(msg.Runes))
	}
}

func (m *Model) insert(s string) {
	m.buf.Insert(s)
	m.ctrl.OnInput()
}

func (m *Model) navigate(d buffer.Dir, n int) {
	for i := 0; i < n; i++ {
		m.buf.Move(d)
	}
	m.ctrl.OnNavigate()
}

func (m *Model) page() int {
	return max(m.rows()-1, 1)
}

// rows is the number of text lines on screen.
func (m *Model) rows() int {
	if m.showStatus {
		return m.height - 1
	}
	return m.height
}

// follow scrolls so the caret line stays visible and mirrors the offset onto the overlay.
func (m *Model) follow() {
	rows := m.rows()
	if rows <= 0 {
		return
	}
	start, _ := m.buf.Caret()
	line, _ := m.buf.LineCol(start)
	top := m.ctrl.Render().ScrollTop
	switch {
	case line < top:
		top = line
	case line >= top+rows:
		top = line - rows + 1
	}
	m.ctrl.OnScroll(top, 0)
}

func (m *Model) notify(ev suggest.Event) {
	switch ev := ev.(type) {
	case suggest.PreRequest:
		m.errMsg = ""
	case suggest.Loading:
		m.loading = ev.On
	case suggest.Error:
		m.errMsg = ev.Message
	}
}

func (m *Model) View() string {
	ov := m.ctrl.Render()
	lines := strings.Split(m.renderText(ov.Composition), "\n")

	top := min(ov.ScrollTop, len(lines))
	end := len(lines)
	if rows := m.rows(); rows > 0 && top+rows < end {
		end = top + rows
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(lines[top:end], "\n"))
	if m.showStatus {
		sb.WriteString("\n")
		sb.WriteString(m.statusLine())
	}
	return sb.String()
}

// renderText draws the buffer with the cursor cell and the ghost text after it.
func (m *Model) renderText(c suggest.Composition) string {
	var sb strings.Builder
	sb.WriteString(c.Before)

	after := c.After
	if ghost := c.GhostText(); ghost != "" {
		cell, rest := splitCell(ghost)
		sb.WriteString(m.cursor(cell))
		sb.WriteString(styleLines(m.styles.Ghost, rest))
	} else {
		var cell string
		cell, after = splitCell(after)
		sb.WriteString(m.cursor(cell))
	}
	sb.WriteString(after)
	return sb.String()
}

func (m *Model) cursor(cell string) string {
	switch cell {
	case "":
		return m.styles.Cursor.Render(" ")
	case "\n":
		return m.styles.Cursor.Render(" ") + "\n"
	}
	return m.styles.Cursor.Render(cell)
}

func (m *Model) statusLine() string {
	if m.errMsg != "" {
		return m.styles.Error.Render("error: " + m.errMsg)
	}
	state := m.ctrl.State().String()
	if m.loading {
		state += " · loading"
	}
	return m.styles.Status.Render(fmt.Sprintf("%s  %s", state, m.help.View(m.keys)))
}

// splitCell splits off the first grapheme cluster of s.
func splitCell(s string) (string, string) {
	if s == "" {
		return "", ""
	}
	cell, rest, _, _ := uniseg.FirstGraphemeClusterInString(s, -1)
	return cell, rest
}

// styleLines styles each line on its own so lipgloss does not pad them to a block.
func styleLines(st lipgloss.Style, s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		if p != "" {
			parts[i] = st.Render(p)
		}
	}
	return strings.Join(parts, "\n")
}
