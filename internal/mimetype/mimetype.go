// Package mimetype builds allow-list predicates from configured file-type
// tokens. Tokens are file extensions or full MIME types; unresolvable
// tokens are dropped rather than reported, since the matcher only narrows
// an otherwise-open file picker.
package mimetype

import (
	"regexp"
	"strings"
)

// DefaultTypes is the accepted-type configuration used when none is given.
var DefaultTypes = []string{"pdf"}

// canonical maps extension tokens to their canonical MIME type.
var canonical = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"odt":  "application/vnd.oasis.opendocument.text",
	"zip":  "application/zip",
	"gz":   "application/gzip",
	"tar":  "application/x-tar",
	"json": "application/json",
	"xml":  "application/xml",
	"rtf":  "application/rtf",
	"txt":  "text/plain",
	"md":   "text/markdown",
	"csv":  "text/csv",
	"html": "text/html",
	"css":  "text/css",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
}

// Resolve returns the canonical MIME type for a token. A token containing
// a slash is already a MIME type and passes through lowercased.
func Resolve(token string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.TrimPrefix(t, ".")
	if t == "" {
		return "", false
	}
	if strings.Count(t, "/") == 1 {
		return t, true
	}
	mt, ok := canonical[t]
	return mt, ok
}

// ByExtension returns the MIME type for a file name based on its extension.
func ByExtension(name string) (string, bool) {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return "", false
	}
	mt, ok := canonical[strings.ToLower(name[i+1:])]
	return mt, ok
}

// Subtype returns the part of a MIME type after the slash, with any
// structured-syntax suffix removed. Used to synthesize file names.
func Subtype(mime string) string {
	s := mime
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, ";"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "+"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Matcher tests observed MIME types against a configured allow-list.
// The zero value matches nothing.
type Matcher struct {
	re    *regexp.Regexp
	types []string
}

// NewMatcher resolves the given tokens and compiles an anchored matcher.
// Unresolvable tokens are dropped. A matcher whose every token was dropped
// matches nothing.
func NewMatcher(tokens []string) *Matcher {
	var types []string
	seen := make(map[string]bool)
	for _, tok := range tokens {
		mt, ok := Resolve(tok)
		if !ok || seen[mt] {
			continue
		}
		seen[mt] = true
		types = append(types, mt)
	}
	if len(types) == 0 {
		return &Matcher{}
	}

	quoted := make([]string, len(types))
	for i, mt := range types {
		quoted[i] = regexp.QuoteMeta(mt)
	}
	return &Matcher{
		re:    regexp.MustCompile("^(?:" + strings.Join(quoted, "|") + ")$"),
		types: types,
	}
}

// Default returns the matcher for DefaultTypes.
func Default() *Matcher {
	return NewMatcher(DefaultTypes)
}

// Matches reports whether the observed MIME type is on the allow-list.
// Matching is exact and case-insensitive, never substring containment.
func (m *Matcher) Matches(mime string) bool {
	if m == nil || m.re == nil {
		return false
	}
	return m.re.MatchString(strings.ToLower(strings.TrimSpace(mime)))
}

// Types returns the resolved MIME types in configuration order.
func (m *Matcher) Types() []string {
	out := make([]string, len(m.types))
	copy(out, m.types)
	return out
}
