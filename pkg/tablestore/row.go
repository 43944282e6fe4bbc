package tablestore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RowPrefix marks a result-row line in the wrapped command's stdout. The
// remainder of the line is a JSON object:
//
//	@row {"key":"pkg/foo","fields":{"name":"foo","size":1204,"vendored":false}}
//
// Field order in the JSON object is preserved in the decoded Row.
const RowPrefix = "@row "

// ParseRowLine decodes a result-row line. It returns ok=false when the line
// does not carry the row prefix (the line is then progress or raw log text,
// not an error). A line that carries the prefix but fails to decode returns
// an error; the producer is violating the row protocol.
func ParseRowLine(line string) (Row, bool, error) {
	rest, found := strings.CutPrefix(strings.TrimRight(line, "\r\n"), RowPrefix)
	if !found {
		return Row{}, false, nil
	}
	row, err := decodeRow(rest)
	if err != nil {
		return Row{}, true, fmt.Errorf("decode row line: %w", err)
	}
	if row.Key == "" {
		return Row{}, true, fmt.Errorf("decode row line: missing key")
	}
	return row, true, nil
}

// decodeRow walks the JSON token stream by hand so the encounter order of
// the "fields" object is kept; unmarshalling into a map would lose it.
func decodeRow(src string) (Row, error) {
	dec := json.NewDecoder(strings.NewReader(src))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return Row{}, err
	}

	var row Row
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Row{}, err
		}
		name, ok := tok.(string)
		if !ok {
			return Row{}, fmt.Errorf("unexpected token %v", tok)
		}
		switch name {
		case "key":
			tok, err := dec.Token()
			if err != nil {
				return Row{}, err
			}
			key, ok := tok.(string)
			if !ok {
				return Row{}, fmt.Errorf("key must be a string, got %v", tok)
			}
			row.Key = key
		case "fields":
			fields, err := decodeFields(dec)
			if err != nil {
				return Row{}, err
			}
			row.Fields = fields
		default:
			// Unknown top-level members are skipped for forward compatibility.
			if err := skipValue(dec); err != nil {
				return Row{}, err
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return Row{}, err
	}
	return row, nil
}

func decodeFields(dec *json.Decoder) ([]Field, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected field name token %v", tok)
		}
		value, err := decodeScalar(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Value: value})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return fields, nil
}

// decodeScalar reads one scalar value. Integral numbers decode to int64,
// fractional ones to float64. Nested objects and arrays are rejected: row
// cells are scalars by contract.
func decodeScalar(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		return nil, fmt.Errorf("nested %v not allowed in row fields", v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", v.String(), err)
		}
		return f, nil
	default:
		// string, bool, or nil
		return v, nil
	}
}

// skipValue consumes one JSON value of any shape.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim == '}' || delim == ']' {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
