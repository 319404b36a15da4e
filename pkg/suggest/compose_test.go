package suggest

import "testing"

func TestCompose_Separator(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		caret   int
		ghost   string
		wantSep bool
	}{
		{"word before caret", "Hello", 5, "world.", true},
		{"space before caret", "Hello ", 6, "world.", false},
		{"ghost starts with space", "Hello", 5, " world.", false},
		{"empty buffer", "", 0, "Hello.", false},
		{"no ghost", "Hello", 5, "", false},
		{"newline before caret", "Hello\n", 6, "World.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Session{}
			if tt.ghost != "" {
				s = Session{Source: tt.ghost, Fragments: []string{tt.ghost}, Visible: true}
			}
			c := Compose(tt.text, tt.caret, s)
			if c.Separator != tt.wantSep {
				t.Fatalf("Separator: got %v, want %v", c.Separator, tt.wantSep)
			}
		})
	}
}

func TestCompose_SplitsAtCaret(t *testing.T) {
	s := NewSession("One. Two.")
	c := Compose("abc def", 3, s)
	if c.Before != "abc" || c.After != " def" {
		t.Fatalf("split: got %q|%q", c.Before, c.After)
	}
	if c.Ghost != "One. Two." {
		t.Fatalf("ghost: got %q", c.Ghost)
	}
	if got, want := c.Plain(), "abc One. Two. def"; got != want {
		t.Fatalf("Plain: got %q, want %q", got, want)
	}
}

func TestCompose_GhostFromCursor(t *testing.T) {
	s := NewSession("One. Two. Three.")
	s.Advance()
	c := Compose("x ", 2, s)
	if got, want := c.Ghost, "Two. Three."; got != want {
		t.Fatalf("ghost: got %q, want %q", got, want)
	}
}

func TestCompose_InvisibleSessionHasNoGhost(t *testing.T) {
	s := NewSession("One.")
	s.Clear()
	c := Compose("abc", 3, s)
	if c.HasGhost() {
		t.Fatalf("expected no ghost, got %q", c.Ghost)
	}
}

func TestComposition_HTMLEscapes(t *testing.T) {
	s := Session{Source: "<i>x</i>", Fragments: []string{"<i>x</i>"}, Visible: true}
	c := Compose("<b>&</b>\nnext", 8, s)

	got := c.HTML()
	want := `&lt;b&gt;&amp;&lt;/b&gt;<span class="ghost-text"> &lt;i&gt;x&lt;/i&gt;</span><br>next`
	if got != want {
		t.Fatalf("HTML:\n got %q\nwant %q", got, want)
	}
}

func TestComposition_HTMLLineBreaks(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"a\r\nb\nc", "a<br>b<br>c"},
		{"a\rb", "a<br>b"},
		{"a\r\rb\r", "a<br><br>b<br>"},
		{"a\n\r\nb", "a<br><br>b"},
	}
	for _, tt := range tests {
		c := Compose(tt.text, len(tt.text), Session{})
		if got := c.HTML(); got != tt.want {
			t.Errorf("HTML(%q): got %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestOverlay_UpdateAndMirror(t *testing.T) {
	var o Overlay
	c := Compose("abc", 3, Session{})
	if !o.Update(c) {
		t.Fatalf("first update should report a change")
	}
	if o.Update(c) {
		t.Fatalf("identical update should report no change")
	}
	o.Mirror(120, 7)
	if o.ScrollTop != 120 || o.ScrollLeft != 7 {
		t.Fatalf("scroll: got (%d,%d), want (120,7)", o.ScrollTop, o.ScrollLeft)
	}
}
