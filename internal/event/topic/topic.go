// Package topic defines hierarchical event topic names and the
// wildcard matching used by bus subscriptions.
//
// A topic is a dot-separated path such as "upload.status.changed".
// Subscription patterns may replace any single segment with "*" or end
// in "**" to capture an entire subtree:
//
//	upload.*.changed  matches upload.status.changed
//	upload.**         matches upload.complete and upload.status.changed
package topic

import "strings"

// Separator splits a topic name into its segments.
const Separator = "."

// Wildcard segments recognized by Matches.
const (
	wildcardOne = "*"  // exactly one segment
	wildcardAny = "**" // zero or more trailing segments
)

// Topic names an event stream. Concrete topics contain no wildcards;
// subscription patterns may.
type Topic string

// String returns the topic as a plain string.
func (t Topic) String() string { return string(t) }

// Segments returns the dot-separated parts of the topic. The empty
// topic has no segments.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Join assembles a topic from parts. Empty parts are dropped.
func Join(parts ...string) Topic {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return Topic(strings.Join(kept, Separator))
}

// IsValid reports whether the topic is well formed: at least one
// segment, no empty segments, and "**" nowhere but last.
func (t Topic) IsValid() bool {
	segs := t.Segments()
	if len(segs) == 0 {
		return false
	}
	for i, s := range segs {
		if s == "" {
			return false
		}
		if s == wildcardAny && i != len(segs)-1 {
			return false
		}
	}
	return true
}

// Matches reports whether the topic satisfies pattern. Pattern
// segments equal to "*" match exactly one segment; a trailing "**"
// matches any remainder, including none.
func (t Topic) Matches(pattern Topic) bool {
	if t == pattern {
		return true
	}
	name, pat := t.Segments(), pattern.Segments()
	for i, p := range pat {
		if p == wildcardAny {
			return true
		}
		if i >= len(name) {
			return false
		}
		if p != wildcardOne && p != name[i] {
			return false
		}
	}
	return len(pat) == len(name)
}
