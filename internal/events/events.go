// Package events normalizes exported streaming history into [models.PlayEvent] records.
//
// An export is either a JSON array of event objects or an object that holds such an array under
// one of the [ContainerKeys]. A lone event object is accepted as a one-event collection.
package events

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/desertthunder/listenlog/internal/models"
	"github.com/desertthunder/listenlog/internal/shared"
	"github.com/goccy/go-json"
)

// ContainerKeys lists the object keys that may hold the event array, in lookup order.
var ContainerKeys = []string{"history", "play_history", "items", "list", "plays"}

// eventKeys mark an object as a single event rather than a container.
var eventKeys = []string{"ts", "spotify_track_uri"}

// Parse reads an export from r. Shape and decoding failures wrap [shared.ErrMalformedInput].
func Parse(r io.Reader) ([]models.PlayEvent, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return Normalize(data)
}

// ParseFile reads an export from the file at path.
func ParseFile(path string) ([]models.PlayEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Normalize decodes raw JSON into a flat, ordered event sequence.
func Normalize(raw []byte) ([]models.PlayEvent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", shared.ErrMalformedInput)
	}

	switch raw[0] {
	case '[':
		return decodeArray(raw)
	case '{':
		return decodeObject(raw)
	default:
		return nil, fmt.Errorf("%w: expected a JSON array or object", shared.ErrMalformedInput)
	}
}

func decodeObject(raw []byte) ([]models.PlayEvent, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedInput, err)
	}

	for _, key := range ContainerKeys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		switch {
		case isNull(v):
			return []models.PlayEvent{}, nil
		case len(v) > 0 && v[0] == '[':
			return decodeArray(v)
		default:
			return nil, fmt.Errorf("%w: %q is not an array", shared.ErrMalformedInput, key)
		}
	}

	for _, key := range eventKeys {
		if _, ok := obj[key]; ok {
			var e models.PlayEvent
			if err := json.Unmarshal(raw, &e); err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrMalformedInput, err)
			}
			return []models.PlayEvent{e}, nil
		}
	}

	return nil, fmt.Errorf("%w: object has none of the keys %v", shared.ErrMalformedInput, ContainerKeys)
}

func decodeArray(raw []byte) ([]models.PlayEvent, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedInput, err)
	}

	out := make([]models.PlayEvent, 0, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if isNull(elem) {
			continue
		}
		if len(elem) == 0 || elem[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", shared.ErrMalformedInput, i)
		}

		var e models.PlayEvent
		if err := json.Unmarshal(elem, &e); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", shared.ErrMalformedInput, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func isNull(v []byte) bool {
	return bytes.Equal(v, []byte("null"))
}

// TrackReferences returns the distinct track references of events that name a track, in the order
// they first appear.
func TrackReferences(events []models.PlayEvent) []string {
	seen := make(models.IDSet)
	var refs []string
	for _, e := range events {
		if !e.IsTrack() || seen.Has(e.TrackURI) {
			continue
		}
		seen.Add(e.TrackURI)
		refs = append(refs, e.TrackURI)
	}
	return refs
}
