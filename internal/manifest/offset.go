package manifest

import (
	"bytes"
	"encoding/json"
	"io"
)

// value is a JSON value decoded from a manifest file with its byte-offset
// span preserved, so the Analyzer can point diagnostics at the exact source
// range that produced a validation problem.
type value struct {
	kind   kind
	offset int
	length int

	str     string
	boolean bool
	number  float64

	// object preserves declaration order; keyOffsets gives the span of each
	// key's own string literal (used when a diagnostic should underline the
	// key rather than the value, e.g. an unexpected field name).
	object     map[string]value
	keyOffsets map[string]location
	order      []string

	array []value
}

type kind uint8

const (
	kindNull kind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

type location struct {
	offset int
	length int
}

// parseDocument decodes the top-level JSON document in data, recording byte
// offsets for every value and object key along the way. It reports a single
// error for malformed JSON; the caller turns that into a file-level
// diagnostic.
func parseDocument(data []byte) (value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decodeValue(dec, data)
	if err != nil {
		return value{}, err
	}
	return v, nil
}

// decodeValue reads one JSON value via dec and recovers its start offset by
// scanning backward from the offset Decoder reports after consuming it.
// encoding/json's tokenizer only exposes the offset immediately following a
// token, not its start, so the start is recovered here for each token kind.
func decodeValue(dec *json.Decoder, data []byte) (value, error) {
	tok, err := dec.Token()
	if err != nil {
		return value{}, err
	}
	end := int(dec.InputOffset())

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			start := end - 1
			obj := value{kind: kindObject, offset: start, object: map[string]value{}, keyOffsets: map[string]location{}}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return value{}, err
				}
				keyEnd := int(dec.InputOffset())
				key, _ := keyTok.(string)
				keyStart := findStringStart(data, keyEnd)

				val, err := decodeValue(dec, data)
				if err != nil {
					return value{}, err
				}
				obj.object[key] = val
				obj.keyOffsets[key] = location{offset: keyStart, length: keyEnd - keyStart}
				obj.order = append(obj.order, key)
			}
			closeTok, err := dec.Token() // consume '}'
			if err != nil {
				return value{}, err
			}
			closeEnd := int(dec.InputOffset())
			_ = closeTok
			obj.length = closeEnd - start
			return obj, nil
		case '[':
			start := end - 1
			arr := value{kind: kindArray, offset: start}
			for dec.More() {
				elem, err := decodeValue(dec, data)
				if err != nil {
					return value{}, err
				}
				arr.array = append(arr.array, elem)
			}
			closeTok, err := dec.Token() // consume ']'
			if err != nil {
				return value{}, err
			}
			closeEnd := int(dec.InputOffset())
			_ = closeTok
			arr.length = closeEnd - start
			return arr, nil
		}
	case string:
		start := findStringStart(data, end)
		return value{kind: kindString, offset: start, length: end - start, str: t}, nil
	case bool:
		start := findLiteralStart(data, end)
		return value{kind: kindBool, offset: start, length: end - start, boolean: t}, nil
	case float64:
		start := findNumberStart(data, end)
		return value{kind: kindNumber, offset: start, length: end - start, number: t}, nil
	case nil:
		start := findLiteralStart(data, end)
		return value{kind: kindNull, offset: start, length: end - start}, nil
	}
	return value{}, io.ErrUnexpectedEOF
}

// findStringStart walks backward from the offset just past a string
// literal's closing quote to find its opening quote, skipping escaped
// quotes.
func findStringStart(data []byte, end int) int {
	i := end - 2 // skip the closing quote itself
	for i > 0 {
		if data[i] == '"' && data[i-1] != '\\' {
			return i
		}
		i--
	}
	return 0
}

// findLiteralStart walks backward over a true/false/null token.
func findLiteralStart(data []byte, end int) int {
	i := end - 1
	for i > 0 && isLiteralByte(data[i-1]) {
		i--
	}
	return i
}

func isLiteralByte(b byte) bool {
	switch b {
	case 't', 'r', 'u', 'e', 'f', 'a', 'l', 's', 'n':
		return true
	default:
		return false
	}
}

// findNumberStart walks backward over a JSON number's digits, sign, decimal
// point, and exponent characters.
func findNumberStart(data []byte, end int) int {
	i := end - 1
	for i > 0 && isNumberByte(data[i-1]) {
		i--
	}
	return i
}

func isNumberByte(b byte) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case b == '-' || b == '+' || b == '.' || b == 'e' || b == 'E':
		return true
	default:
		return false
	}
}
