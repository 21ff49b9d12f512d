package client

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrUnsupportedHeaders is returned for a HeaderInit that is none of the
// known shapes.
var ErrUnsupportedHeaders = errors.New("unsupported header shape")

// HeaderInit is caller-supplied headers in one of three shapes: HeaderMap,
// HeaderPairs or HeaderRecord.
type HeaderInit interface {
	headerInit()
}

// HeaderMap is a header collection that may hold several values per key.
type HeaderMap http.Header

// HeaderPairs is an ordered list of key/value pairs. Later pairs win.
type HeaderPairs [][2]string

// HeaderRecord is a plain key/value mapping.
type HeaderRecord map[string]string

func (HeaderMap) headerInit()    {}
func (HeaderPairs) headerInit()  {}
func (HeaderRecord) headerInit() {}

// NormalizeHeaders flattens h into a header set with one value per
// canonicalized key. A nil h yields an empty set.
func NormalizeHeaders(h HeaderInit) (http.Header, error) {
	out := make(http.Header)

	switch v := h.(type) {
	case nil:
	case HeaderMap:
		for _, key := range sortedKeys(v) {
			if values := v[key]; len(values) > 0 {
				out.Set(key, strings.Join(values, ", "))
			}
		}
	case HeaderPairs:
		for _, pair := range v {
			out.Set(pair[0], pair[1])
		}
	case HeaderRecord:
		for _, key := range sortedKeys(v) {
			out.Set(key, v[key])
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedHeaders, h)
	}

	return out, nil
}

// sortedKeys orders keys so that keys differing only by case collapse into
// one with a deterministic surviving value.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// mergeHeaders builds the outgoing header set: JSON content type by default,
// then caller headers, then the bearer token which callers cannot displace.
func mergeHeaders(caller HeaderInit, token string, hasToken bool) (http.Header, error) {
	normalized, err := NormalizeHeaders(caller)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	for key, values := range normalized {
		headers[key] = values
	}

	if hasToken {
		headers.Set("Authorization", "Bearer "+token)
	}

	return headers, nil
}
