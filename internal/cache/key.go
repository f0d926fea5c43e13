package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key derives a deterministic cache key from a logical operation name and
// its significant parameters. Nil values are dropped, so an absent
// parameter and an explicit nil produce the same key. Map iteration order
// never leaks into the key: parameter names are sorted and values are
// JSON-encoded (encoding/json itself sorts nested map keys).
func Key(op string, params map[string]any) string {
	if len(params) == 0 {
		return op
	}

	names := make([]string, 0, len(params))
	for name, value := range params {
		if value == nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(op)
	for i, name := range names {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')

		encoded, err := json.Marshal(params[name])
		if err != nil {
			// Unencodable values (channels, funcs) have no business in a
			// cache key; fall back to the fmt representation.
			b.WriteString(fmt.Sprintf("%v", params[name]))
			continue
		}
		b.Write(encoded)
	}

	return b.String()
}
