package mimetype

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		want   string
		wantOK bool
	}{
		{"extension", "pdf", "application/pdf", true},
		{"dotted extension", ".png", "image/png", true},
		{"uppercase", "PDF", "application/pdf", true},
		{"whitespace", " csv ", "text/csv", true},
		{"full mime passthrough", "application/x-custom", "application/x-custom", true},
		{"mime lowercased", "Image/PNG", "image/png", true},
		{"unknown token", "nope", "", false},
		{"empty", "", "", false},
		{"double slash", "a/b/c", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.token)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.token, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestByExtension(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		want   string
		wantOK bool
	}{
		{"simple", "report.pdf", "application/pdf", true},
		{"multi dot", "archive.tar.gz", "application/gzip", true},
		{"uppercase ext", "PHOTO.JPG", "image/jpeg", true},
		{"no extension", "README", "", false},
		{"trailing dot", "weird.", "", false},
		{"unknown extension", "data.xyz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ByExtension(tt.file)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ByExtension(%q) = (%q, %v), want (%q, %v)", tt.file, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSubtype(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"application/pdf", "pdf"},
		{"image/svg+xml", "svg"},
		{"text/plain; charset=utf-8", "plain"},
		{"pdf", "pdf"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Subtype(tt.mime); got != tt.want {
			t.Errorf("Subtype(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestMatcher_Matches(t *testing.T) {
	m := NewMatcher([]string{"pdf", "png", "bogus"})

	tests := []struct {
		name string
		mime string
		want bool
	}{
		{"allowed pdf", "application/pdf", true},
		{"allowed png", "image/png", true},
		{"case insensitive", "Application/PDF", true},
		{"denied type", "image/jpeg", false},
		{"substring prefix", "application/pdfx", false},
		{"substring suffix", "xapplication/pdf", false},
		{"empty observed", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(tt.mime); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.mime, got, tt.want)
			}
		})
	}
}

func TestMatcher_emptyResolutionMatchesNothing(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
	}{
		{"no tokens", nil},
		{"all unresolvable", []string{"bogus", "alsobad"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.tokens)
			for _, mime := range []string{"application/pdf", "image/png", ""} {
				if m.Matches(mime) {
					t.Errorf("Matches(%q) = true, want false", mime)
				}
			}
		})
	}
}

func TestMatcher_zeroValue(t *testing.T) {
	var m Matcher
	if m.Matches("application/pdf") {
		t.Error("zero-value matcher matched")
	}

	var nilM *Matcher
	if nilM.Matches("application/pdf") {
		t.Error("nil matcher matched")
	}
}

func TestMatcher_quotesMetaCharacters(t *testing.T) {
	m := NewMatcher([]string{"svg"})
	if !m.Matches("image/svg+xml") {
		t.Error("Matches(image/svg+xml) = false, want true")
	}
	// The + in the canonical type must not act as a regexp quantifier.
	if m.Matches("image/svggxml") {
		t.Error("Matches(image/svggxml) = true, want false")
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	if !m.Matches("application/pdf") {
		t.Error("default matcher rejects application/pdf")
	}
	if m.Matches("image/png") {
		t.Error("default matcher accepts image/png")
	}
}

func TestMatcher_Types(t *testing.T) {
	m := NewMatcher([]string{"png", "pdf", "png"})
	got := m.Types()
	want := []string{"image/png", "application/pdf"}
	if len(got) != len(want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Types()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
