package wallet

import (
	"fmt"
	"strings"
)

type base58Address interface {
	ToBase58() string
}

// NormalizeAddress collapses the address shapes a provider may hand back
// (a base58 string, an object with ToBase58, a Stringer, or a raw value)
// into one canonical string. Normalizing an already-normalized address is a
// no-op.
func NormalizeAddress(v any) string {
	switch a := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(a)
	case base58Address:
		return strings.TrimSpace(a.ToBase58())
	case fmt.Stringer:
		return strings.TrimSpace(a.String())
	default:
		return strings.TrimSpace(fmt.Sprint(a))
	}
}
