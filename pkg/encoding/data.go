// Package encoding holds the byte codecs shared by the tap surfaces:
// JSON-serializable byte-slice types, the loose hex reader used by the
// shell's hex commands, the stream render formats, and a JSON salvager
// for mangled device telemetry.
package encoding

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// StdBase64Data is a byte slice that serializes to/from standard base64 in
// JSON. Monitor frames carry raw chunk payloads this way.
type StdBase64Data []byte

// MarshalJSON implements json.Marshaler.
func (b StdBase64Data) MarshalJSON() ([]byte, error) {
	return []byte(`"` + base64.StdEncoding.EncodeToString(b) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. A JSON null leaves the slice
// untouched.
func (b *StdBase64Data) UnmarshalJSON(data []byte) error {
	s, null, err := unquote(data, "base64")
	if err != nil || null {
		return err
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// String returns the base64 form.
func (b StdBase64Data) String() string {
	return base64.StdEncoding.EncodeToString(b)
}

// HexData is a byte slice that serializes to/from lowercase hex in JSON.
// Session previews use it so captures stay readable in yaml/json output.
type HexData []byte

// MarshalJSON implements json.Marshaler.
func (h HexData) MarshalJSON() ([]byte, error) {
	return []byte(`"` + hex.EncodeToString(h) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. A JSON null leaves the slice
// untouched.
func (h *HexData) UnmarshalJSON(data []byte) error {
	s, null, err := unquote(data, "hex")
	if err != nil || null {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}

// String returns the hex form.
func (h HexData) String() string {
	return hex.EncodeToString(h)
}

// unquote unwraps a JSON string literal, reporting JSON null separately so
// callers can leave the destination untouched.
func unquote(data []byte, kind string) (s string, null bool, err error) {
	if len(data) == 0 {
		return "", false, fmt.Errorf("unmarshal %s data: empty input", kind)
	}
	switch data[0] {
	case 'n':
		return "", true, nil
	case '"':
		if len(data) < 2 || data[len(data)-1] != '"' {
			return "", false, fmt.Errorf("unmarshal %s data: invalid string", kind)
		}
		return string(data[1 : len(data)-1]), false, nil
	default:
		return "", false, errors.New("unmarshal " + kind + " data: not a string")
	}
}
