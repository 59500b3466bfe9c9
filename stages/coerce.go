package stages

import "encoding/json"

// coerce returns input as a T. Within a single run, stage N's output is
// passed to stage N+1 as the concrete Go value already, so the type
// assertion succeeds directly. After a resume, the upstream payload was
// loaded back from its JSON checkpoint as `any` (a generic map), so the
// assertion fails and we round-trip it through JSON into T instead.
func coerce[T any](input any) (T, error) {
	var zero T
	if input == nil {
		return zero, nil
	}
	if v, ok := input.(T); ok {
		return v, nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, err
	}
	return out, nil
}
