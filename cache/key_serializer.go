package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/goliatone/kronos-sync/internal/cacheinfra"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = cacheinfra.KeySeparator

// Key is a cache key tuple: a domain followed by its scope parts.
// Two keys describing the same logical resource are structurally equal.
type Key []string

// KeyFor builds a Key from a domain name and scope parts.
// Parts are serialized deterministically, so KeyFor("leaves", 2025) always
// equals KeyFor("leaves", 2025) and never equals KeyFor("leaves", "2025x").
func KeyFor(domain string, parts ...any) Key {
	key := make(Key, 0, len(parts)+1)
	key = append(key, domain)
	for _, part := range parts {
		key = append(key, serializePart(part))
	}
	return key
}

// Domain returns the first segment of the key.
func (k Key) Domain() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// String joins the key segments with KeySeparator. Colons and backslashes
// inside a segment are backslash-escaped.
func (k Key) String() string {
	return cacheinfra.JoinKey(k)
}

// Equal reports whether both keys have the same segments in the same order.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix matches the leading segments of k.
// Matching is per segment: ["leaves"] matches ["leaves", "2025"] but not
// ["leaves_history"]. An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) Key {
	return Key(cacheinfra.SplitKey(s))
}

func serializePart(v any) string {
	if v == nil {
		return "nil"
	}

	if s, ok := v.(fmt.Stringer); ok {
		if rv := reflect.ValueOf(v); rv.Kind() != reflect.Ptr || !rv.IsNil() {
			return s.String()
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return serializePart(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return "slice" + serializeElems(rv)
	case reflect.Array:
		return "array" + serializeElems(rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return serializeMap(rv)
	case reflect.Struct:
		return serializeStruct(rv)
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return fmt.Sprintf("%v", v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "unsupported:" + rv.Type().String()
	}
	return "json:" + string(data)
}

func serializeElems(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = serializePart(rv.Index(i).Interface())
	}
	return fmt.Sprintf("[%d]:{%s}", len(parts), strings.Join(parts, ","))
}

// serializeMap sorts pairs by serialized key so iteration order never leaks into keys.
func serializeMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, serializePart(iter.Key().Interface())+"="+serializePart(iter.Value().Interface()))
	}
	sort.Strings(pairs)
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

func serializeStruct(rv reflect.Value) string {
	rt := rv.Type()
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+serializePart(rv.Field(i).Interface()))
	}
	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}
