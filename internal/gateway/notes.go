package gateway

import (
	"bytes"
	"encoding/json"
)

// Notes is the provider's free-form key/value bag. The provider encodes an
// empty bag as [] rather than {}.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || bytes.HasPrefix(trimmed, []byte("[")) {
		*n = Notes{}
		return nil
	}
	raw := map[string]any{}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	out := make(Notes, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			b, _ := json.Marshal(val)
			out[k] = string(b)
		}
	}
	*n = out
	return nil
}
