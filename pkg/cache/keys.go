package cache

import (
	"fmt"
	"strings"
)

// Key joins prefix and parts with ':'. Empty parts are kept so positions stay stable.
func Key(prefix string, parts ...any) string {
	segs := make([]string, 0, len(parts)+1)
	segs = append(segs, prefix)
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			segs = append(segs, v)
		case fmt.Stringer:
			segs = append(segs, v.String())
		default:
			segs = append(segs, fmt.Sprint(v))
		}
	}
	return strings.Join(segs, ":")
}
