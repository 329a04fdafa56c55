package catalog

import (
	"strings"
	"unicode/utf8"
)

const (
	suggestMinInput = 2
	suggestLimit    = 8
)

// suggester buckets candidates by prefix or substring match of a lowercased input.
// Each distinct value is considered once.
type suggester struct {
	input    string
	seen     map[string]struct{}
	starts   []string
	contains []string
}

func newSuggester(input string) (*suggester, bool) {
	in := strings.ToLower(strings.TrimSpace(input))
	if utf8.RuneCountInString(in) < suggestMinInput {
		return nil, false
	}
	return &suggester{input: in, seen: make(map[string]struct{})}, true
}

func (s *suggester) offer(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	lv := strings.ToLower(v)
	switch {
	case strings.HasPrefix(lv, s.input):
		s.seen[v] = struct{}{}
		s.starts = append(s.starts, v)
	case strings.Contains(lv, s.input):
		s.seen[v] = struct{}{}
		s.contains = append(s.contains, v)
	}
}

// full is the early exit: later candidates could not change the result.
func (s *suggester) full() bool {
	return len(s.starts) >= suggestLimit && len(s.contains) >= suggestLimit
}

func (s *suggester) result() []string {
	out := append(append(make([]string, 0, len(s.starts)+len(s.contains)), s.starts...), s.contains...)
	if len(out) > suggestLimit {
		out = out[:suggestLimit]
	}
	return out
}

// TitleSuggestions returns up to eight titles, prefix matches first.
func TitleSuggestions(materials []Material, input string) []string {
	s, ok := newSuggester(input)
	if !ok {
		return []string{}
	}
	for _, m := range materials {
		t := strings.TrimSpace(m.Title)
		if t == "" {
			continue
		}
		s.offer(t)
		if s.full() {
			break
		}
	}
	return s.result()
}

// AuthorSuggestions works like TitleSuggestions over the individual names of each
// card's author list.
func AuthorSuggestions(materials []Material, input string) []string {
	s, ok := newSuggester(input)
	if !ok {
		return []string{}
	}
	for _, m := range materials {
		for _, a := range strings.Split(m.Authors, ",") {
			if a = strings.TrimSpace(a); a == "" {
				continue
			}
			s.offer(a)
			if s.full() {
				return s.result()
			}
		}
	}
	return s.result()
}
