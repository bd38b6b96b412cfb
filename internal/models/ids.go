package models

import (
	"sort"
	"strings"
	"time"
)

// TrackIDFromURI derives a track's identifier from its catalog reference.
// "spotify:track:ABC" yields "ABC". A bare identifier maps to itself, and "" or "null" yield "".
func TrackIDFromURI(uri string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" || uri == "null" {
		return ""
	}
	if idx := strings.LastIndexByte(uri, ':'); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}

var releaseDateLayouts = []struct {
	layout string
	length int
}{
	{layout: "2006-01-02", length: 10},
	{layout: "2006-01", length: 7},
	{layout: "2006", length: 4},
}

// NormalizeReleaseDate turns a catalog release date of day, month or year precision into a
// YYYY-MM-DD date. Unparseable input yields "".
func NormalizeReleaseDate(s string) string {
	s = strings.TrimSpace(s)
	for _, l := range releaseDateLayouts {
		if len(s) != l.length {
			continue
		}
		t, err := time.Parse(l.layout, s)
		if err != nil {
			return ""
		}
		return t.Format("2006-01-02")
	}
	return ""
}

// IDSet is a set of identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids, ignoring empty strings.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	s.Add(ids...)
	return s
}

// Add inserts ids, ignoring empty strings.
func (s IDSet) Add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Union returns a new set holding the members of s and other.
func (s IDSet) Union(other IDSet) IDSet {
	out := make(IDSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
