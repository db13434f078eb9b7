package encoding

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoJSON is returned by ExtractJSON when the input holds no JSON object.
var ErrNoJSON = errors.New("encoding: no JSON object found")

// ExtractJSON pulls the first JSON object out of a captured byte stream and
// repairs it. Device logs interleave JSON telemetry with plain text and
// often truncate or mangle it mid-object; the result here is always valid
// JSON, or an error.
//
// The scan starts at the first '{'. If a balanced object follows, that span
// is repaired (unquoted keys, single quotes, trailing commas and similar
// damage); otherwise the object was cut off and the rest of the input is
// repaired as a truncated document.
func ExtractJSON(p []byte) ([]byte, error) {
	start := bytes.IndexByte(p, '{')
	if start < 0 {
		return nil, ErrNoJSON
	}
	span := p[start:]
	if end := balancedObject(span); end > 0 {
		span = span[:end]
	}
	repaired, err := jsonrepair.JSONRepair(string(span))
	if err != nil {
		return nil, fmt.Errorf("encoding: repair JSON: %w", err)
	}
	return []byte(repaired), nil
}

// balancedObject returns the length of the brace-balanced prefix of p,
// which must start at '{', or 0 if the object never closes. Braces inside
// double-quoted strings don't count.
func balancedObject(p []byte) int {
	depth := 0
	inString := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}
