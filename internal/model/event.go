package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Event is an inbound business event as posted to the webhook. Every field
// is optional; lookups go through Field.
type Event map[string]any

// Field returns the first present value among keys, formatted as text.
// Missing keys, null, false, empty strings and zero numbers count as absent.
func (e Event) Field(keys ...string) string {
	for _, k := range keys {
		if s, ok := stringify(e[k]); ok {
			return s
		}
	}
	return ""
}

func (e Event) Name() string     { return e.Field("event", "type") }
func (e Event) Amount() string   { return e.Field("amount", "total") }
func (e Event) Date() string     { return e.Field("date", "created_at") }
func (e Event) Phone() string    { return e.Field("phone", "msisdn") }
func (e Event) Language() string { return e.Field("language") }

// Truthy applies the Field absence rule to a single decoded JSON value.
func Truthy(v any) bool {
	_, ok := stringify(v)
	return ok
}

// Text formats a decoded JSON value like Field does; absent values yield "".
func Text(v any) string {
	s, _ := stringify(v)
	return s
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		if !t {
			return "", false
		}
		return "true", true
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return "", false
		}
		return t.String(), true
	case float64:
		if t == 0 {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		if t == 0 {
			return "", false
		}
		return strconv.Itoa(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return strings.Trim(string(b), `"`), true
	}
}
