// Package format encodes reports as JSON or MessagePack. MessagePack reuses
// the json struct tags so both encodings carry the same field names.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format is a wire encoding for responses.
type Format string

const (
	JSON    Format = "json"
	MsgPack Format = "msgpack"
)

// Parse accepts json or msgpack; the empty string means JSON.
func Parse(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(JSON):
		return JSON, nil
	case string(MsgPack):
		return MsgPack, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or msgpack)", s)
	}
}

// FromRequest picks MessagePack when the request asks for format=msgpack and
// JSON otherwise.
func FromRequest(r *http.Request) Format {
	if r.URL.Query().Get("format") == string(MsgPack) {
		return MsgPack
	}
	return JSON
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == MsgPack {
		return "application/x-msgpack"
	}
	return "application/json"
}

// Encode writes v to w in format f.
func Encode(w io.Writer, f Format, v any) error {
	if f == MsgPack {
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(v)
	}
	return json.NewEncoder(w).Encode(v)
}

// Write sets the content type and status, then encodes v in the format the
// request asked for.
func Write(w http.ResponseWriter, r *http.Request, status int, v any) error {
	f := FromRequest(r)
	w.Header().Set("Content-Type", f.ContentType())
	w.WriteHeader(status)
	return Encode(w, f, v)
}
