package rendering

import (
	"sort"
	"strings"
	"time"
)

// KeySeparator joins name=value pairs in CacheElement.Key.
const KeySeparator = "::"

// CacheElement identifies one block's rendered output across every cache
// backend. Two elements with the same Key refer to the same artifact.
type CacheElement struct {
	keys  map[string]string
	ttl   time.Duration
	value *Response
}

// NewCacheElement copies keys so later mutation by the caller has no effect.
func NewCacheElement(keys map[string]string, ttl time.Duration) CacheElement {
	cp := make(map[string]string, len(keys))
	for k, v := range keys {
		cp[k] = v
	}
	return CacheElement{keys: cp, ttl: ttl}
}

// Key is the deterministic identity: sorted name=value pairs joined by "::".
func (e CacheElement) Key() string {
	names := make([]string, 0, len(e.keys))
	for k := range e.keys {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+"="+e.keys[k])
	}
	return strings.Join(parts, KeySeparator)
}

// Keys returns a copy of the key map.
func (e CacheElement) Keys() map[string]string {
	cp := make(map[string]string, len(e.keys))
	for k, v := range e.keys {
		cp[k] = v
	}
	return cp
}

func (e CacheElement) TTL() time.Duration { return e.ttl }

func (e CacheElement) Value() *Response { return e.value }

func (e CacheElement) IsEmpty() bool { return len(e.keys) == 0 }

// WithValue returns a copy of e carrying resp.
func (e CacheElement) WithValue(resp *Response) CacheElement {
	e.value = resp
	return e
}

// Matches reports whether every key of e is present with the same value in
// entry. An empty element matches nothing.
func (e CacheElement) Matches(entry map[string]string) bool {
	if len(e.keys) == 0 {
		return false
	}
	for k, v := range e.keys {
		if ev, ok := entry[k]; !ok || ev != v {
			return false
		}
	}
	return true
}

// Tags returns the name=value pairs used to index the element.
func (e CacheElement) Tags() []string {
	tags := make([]string, 0, len(e.keys))
	for k, v := range e.keys {
		tags = append(tags, k+"="+v)
	}
	sort.Strings(tags)
	return tags
}
