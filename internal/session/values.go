package session

import (
	"fmt"

	"github.com/roach88/xqdb/internal/xdm"
)

// ValueOf converts a decoded YAML or JSON value into a query value.
// Integers become xs:integer, floats xs:double, lists sequences; nested
// lists are flattened.
func ValueOf(v any) (xdm.Value, error) {
	switch val := v.(type) {
	case nil:
		return xdm.Empty, nil
	case xdm.Value:
		return val, nil
	case string:
		return xdm.Str(val), nil
	case int:
		return xdm.Int(val), nil
	case int64:
		return xdm.Int(val), nil
	case uint64:
		return xdm.Int(int64(val)), nil
	case float64:
		return xdm.Dbl(val), nil
	case bool:
		return xdm.Bool(val), nil
	case []any:
		vals := make([]xdm.Value, len(val))
		for i, elem := range val {
			ev, err := ValueOf(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			vals[i] = ev
		}
		return xdm.Concat(vals...), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ValuesOf converts a map of decoded values, as found in scenario files.
func ValuesOf(vars map[string]any) (map[string]xdm.Value, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	out := make(map[string]xdm.Value, len(vars))
	for name, v := range vars {
		xv, err := ValueOf(v)
		if err != nil {
			return nil, fmt.Errorf("variable $%s: %w", name, err)
		}
		out[name] = xv
	}
	return out, nil
}
