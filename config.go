package mediator

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when a raw configuration payload is not valid
// JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// ConfigView provides read-only field access over a middleware's static
// configuration payload. The payload is attached at registration with
// WithConfig or WithRawConfig and delivered to instances implementing
// Configurable at activation.
//
// Paths use gjson syntax, so nested fields ("retry.attempts") and array
// indexing ("hosts.0") work as expected.
type ConfigView struct {
	raw []byte
}

// NewConfigView wraps raw JSON in a ConfigView. It returns ErrInvalidJSON
// when the bytes are not valid JSON.
func NewConfigView(raw []byte) (ConfigView, error) {
	if !gjson.ValidBytes(raw) {
		return ConfigView{}, ErrInvalidJSON
	}
	return ConfigView{raw: raw}, nil
}

// HasField returns true if the path exists in the configuration.
func (v ConfigView) HasField(path string) bool {
	return gjson.GetBytes(v.raw, path).Exists()
}

// GetString returns the string value at path, or false if not found or not a
// string.
func (v ConfigView) GetString(path string) (string, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() || r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

// GetInt returns the integer value at path, or false if not found or not a
// number.
func (v ConfigView) GetInt(path string) (int64, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() || r.Type != gjson.Number {
		return 0, false
	}
	return r.Int(), true
}

// GetBool returns the boolean value at path, or false if not found or not a
// boolean.
func (v ConfigView) GetBool(path string) (bool, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() || (r.Type != gjson.True && r.Type != gjson.False) {
		return false, false
	}
	return r.Bool(), true
}

// Raw returns a copy of the underlying JSON payload, or nil when the
// registration carried no configuration.
func (v ConfigView) Raw() json.RawMessage {
	if v.raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(v.raw))
	copy(out, v.raw)
	return out
}

// Empty reports whether the view carries no payload.
func (v ConfigView) Empty() bool { return len(v.raw) == 0 }
