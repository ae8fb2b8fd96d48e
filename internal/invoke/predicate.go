package invoke

import (
	"fmt"
	"strings"
)

// Predicate decides whether a conditional step runs. It reads shared
// context values through get and must not touch external state.
type Predicate func(get func(key string) (any, bool)) bool

// CompilePredicate turns a ?{...} expression into a Predicate. The
// grammar is deliberately small:
//
//	key              key is present in the shared context
//	!key             key is absent
//	key == value     key's value stringifies to value
//	key != value     key's value does not stringify to value
//
// Values may be double-quoted to include spaces.
func CompilePredicate(expr string) (Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty predicate")
	}

	for _, op := range []string{"==", "!="} {
		if i := strings.Index(expr, op); i >= 0 {
			key := strings.TrimSpace(expr[:i])
			want := strings.Trim(strings.TrimSpace(expr[i+len(op):]), `"`)
			if key == "" {
				return nil, fmt.Errorf("predicate %q: missing key before %s", expr, op)
			}
			negate := op == "!="
			return func(get func(string) (any, bool)) bool {
				v, ok := get(key)
				match := ok && fmt.Sprint(v) == want
				return match != negate
			}, nil
		}
	}

	if negKey, ok := strings.CutPrefix(expr, "!"); ok {
		negKey = strings.TrimSpace(negKey)
		if negKey == "" {
			return nil, fmt.Errorf("predicate %q: missing key after !", expr)
		}
		return func(get func(string) (any, bool)) bool {
			_, present := get(negKey)
			return !present
		}, nil
	}

	if strings.ContainsAny(expr, " \t") {
		return nil, fmt.Errorf("predicate %q: expected key, !key, or key ==/!= value", expr)
	}
	key := expr
	return func(get func(string) (any, bool)) bool {
		_, present := get(key)
		return present
	}, nil
}
