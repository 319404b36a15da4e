package suggest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "sentences and paragraph",
			in:   "Hello world. This is Sentence two.\n\nNew paragraph.",
			want: []string{"Hello world.", "This is Sentence two.", "New paragraph."},
		},
		{
			name: "no boundary",
			in:   "  just one piece of text  ",
			want: []string{"just one piece of text"},
		},
		{
			name: "period before lower case is not a boundary",
			in:   "e.g. this stays. together",
			want: []string{"e.g. this stays. together"},
		},
		{
			name: "period without whitespace is not a boundary",
			in:   "Version 1.Two stays",
			want: []string{"Version 1.Two stays"},
		},
		{
			name: "blank line with spaces",
			in:   "first\n   \n\nsecond",
			want: []string{"first", "second"},
		},
		{
			name: "single newline is kept",
			in:   "line one\nline two",
			want: []string{"line one\nline two"},
		},
		{
			name: "non ascii upper case",
			in:   "Fin. Élan vital.",
			want: []string{"Fin.", "Élan vital."},
		},
		{
			name: "empty pieces dropped",
			in:   "\n\nOnly this.\n\n\n\n",
			want: []string{"Only this."},
		},
		{
			name: "blank",
			in:   " \n\t ",
			want: nil,
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Segment(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}
