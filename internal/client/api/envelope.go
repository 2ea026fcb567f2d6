package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

// Kind tags the outcome of Normalize.
type Kind int

const (
	// KindPassThrough is a body without the envelope; Raw holds it unchanged.
	KindPassThrough Kind = iota
	// KindOK is a {"success": true} envelope.
	KindOK
	// KindError is a {"success": false} envelope.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindError:
		return "error"
	default:
		return "passthrough"
	}
}

// Result is a normalized response body.
type Result struct {
	Kind Kind
	// Data is the envelope "data" member (KindOK).
	Data json.RawMessage
	// Pagination is set only when the envelope carried one (KindOK).
	Pagination *models.Pagination
	// Message is the optional envelope "message" (KindOK).
	Message string
	// Err is the decoded error record (KindError).
	Err *Error
	// Raw is the untouched body (KindPassThrough).
	Raw json.RawMessage
}

// ErrNoPayload is returned by Decode when there is nothing to decode.
var ErrNoPayload = errors.New("response has no payload")

// Payload returns the bytes a caller should decode: Data for envelopes,
// Raw for pass-through bodies.
func (r *Result) Payload() json.RawMessage {
	if r.Kind == KindPassThrough {
		return r.Raw
	}
	return r.Data
}

// Decode unmarshals Payload into v. A JSON null payload leaves v untouched.
func (r *Result) Decode(v any) error {
	if r.Kind == KindError {
		return r.Err
	}
	payload := r.Payload()
	if len(bytes.TrimSpace(payload)) == 0 {
		return ErrNoPayload
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Normalize classifies raw. The envelope is recognised only by an explicit
// boolean "success" member on a JSON object; anything else passes through.
func Normalize(raw []byte) Result {
	root, ok := envelopeRoot(raw)
	if !ok {
		return Result{Kind: KindPassThrough, Raw: raw}
	}

	switch root.Get("success").Type {
	case gjson.True:
		res := Result{Kind: KindOK, Message: root.Get("message").String()}
		if data := root.Get("data"); data.Exists() {
			res.Data = json.RawMessage(data.Raw)
		}
		if p := root.Get("pagination"); p.IsObject() {
			var pg models.Pagination
			if err := json.Unmarshal([]byte(p.Raw), &pg); err == nil {
				res.Pagination = &pg
			}
		}
		return res
	case gjson.False:
		return Result{Kind: KindError, Err: errorFromEnvelope(0, root)}
	default:
		return Result{Kind: KindPassThrough, Raw: raw}
	}
}

// NormalizeError converts a failed response into an *Error. Bodies without
// the error envelope fall back to a generic record derived from status.
func NormalizeError(status int, raw []byte) *Error {
	if root, ok := jsonObject(raw); ok {
		if root.Get("error").IsObject() {
			return errorFromEnvelope(status, root)
		}
		if msg := root.Get("message").String(); msg != "" {
			return NewError(status, codeFromStatus(status), msg)
		}
		if msg := root.Get("error").String(); msg != "" {
			return NewError(status, codeFromStatus(status), msg)
		}
	}
	return NewError(status, codeFromStatus(status), defaultStatusMessage(status))
}

func errorFromEnvelope(status int, root gjson.Result) *Error {
	e := root.Get("error")

	code := codeFromStatus(status)
	if c := e.Get("code"); c.Exists() {
		switch c.Type {
		case gjson.Number:
			code = c.Raw
		case gjson.String:
			if c.Str != "" {
				code = c.Str
			}
		}
	}

	message := e.Get("message").String()
	if message == "" {
		message = defaultStatusMessage(status)
	}

	if f := e.Get("fields"); f.IsObject() {
		fields := make(map[string]string)
		f.ForEach(func(key, value gjson.Result) bool {
			fields[key.String()] = value.String()
			return true
		})
		return NewValidationError(status, code, message, fields)
	}
	return NewError(status, code, message)
}

func envelopeRoot(raw []byte) (gjson.Result, bool) {
	root, ok := jsonObject(raw)
	if !ok || !root.Get("success").Exists() {
		return gjson.Result{}, false
	}
	return root, true
}

func jsonObject(raw []byte) (gjson.Result, bool) {
	if len(bytes.TrimSpace(raw)) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}, false
	}
	root := gjson.ParseBytes(raw)
	return root, root.IsObject()
}

func defaultStatusMessage(status int) string {
	if text := http.StatusText(status); text != "" && status >= 400 {
		return text
	}
	return DefaultErrorMessage
}
