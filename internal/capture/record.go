// Package capture reads the in-page capture buffer back into Go.
package capture

import (
	"bytes"
	"errors"

	"github.com/tidwall/gjson"
)

// Record is one raw observation pushed by the capture hook. It keeps the JSON text as
// produced in the page so callers can inspect loosely-typed fields without committing to
// a schema.
type Record []byte

// Get returns the field at path (gjson syntax, e.g. "version" or "obj.version").
func (r Record) Get(path string) gjson.Result {
	return gjson.GetBytes(r, path)
}

// String returns the raw JSON text of the record.
func (r Record) String() string {
	return string(r)
}

// ErrNotArray is returned by Decode when the payload is valid JSON but not an array.
var ErrNotArray = errors.New("capture payload is not a JSON array")

// ErrMalformed is returned by Decode when the payload is not valid JSON.
var ErrMalformed = errors.New("capture payload is not valid JSON")

// Decode parses the serialized capture buffer into records, preserving capture order.
func Decode(text string) ([]Record, error) {
	if !gjson.Valid(text) {
		return nil, ErrMalformed
	}
	res := gjson.Parse(text)
	if !res.IsArray() {
		return nil, ErrNotArray
	}

	records := make([]Record, 0, len(res.Array()))
	res.ForEach(func(_, value gjson.Result) bool {
		records = append(records, Record(value.Raw))
		return true
	})
	return records, nil
}

// Encode joins records back into a JSON array, the inverse of Decode.
func Encode(records []Record) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(r)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
