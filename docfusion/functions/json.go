package functions

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// ExtractPathValue returns the string stored under key at the top level of doc.
// Unparseable documents, missing keys and non-string values all yield "".
func ExtractPathValue(doc, key string) string {
	obj, ok := decodeObject(doc)
	if !ok {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}

// ContainsJSON reports whether pattern is a JSON object whose every top-level
// key is present in doc with an equal value. Parse failures and non-object
// operands yield false.
func ContainsJSON(doc, pattern string) bool {
	d, ok := decodeObject(doc)
	if !ok {
		return false
	}
	p, ok := decodeObject(pattern)
	if !ok {
		return false
	}
	for k, want := range p {
		got, present := d[k]
		if !present || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// decodeObject keeps numbers as json.Number so 1 and 1.0 stay distinct.
func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}
