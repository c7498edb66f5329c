package ops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	dferrors "github.com/docfusion/docfusion/docfusion/errors"
)

// Validator checks documents before they are written. The zero value only
// requires a JSON object.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles a JSON schema. An empty schema disables schema checks.
func NewValidator(schemaJSON string) (*Validator, error) {
	if strings.TrimSpace(schemaJSON) == "" {
		return &Validator{}, nil
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrConfig, "invalid json schema", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate returns the compact encoding of doc, which must be a JSON object.
func (v *Validator) Validate(doc []byte) ([]byte, error) {
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, dferrors.InvalidDocumentError("document must be a JSON object")
	}
	if dec.More() {
		return nil, dferrors.InvalidDocumentError("trailing data after JSON object")
	}

	if v != nil && v.schema != nil {
		result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
		if err != nil {
			return nil, dferrors.Wrap(dferrors.ErrInvalidDocument, "schema validation error", err)
		}
		if !result.Valid() {
			var errs []string
			for _, desc := range result.Errors() {
				errs = append(errs, desc.String())
			}
			return nil, dferrors.InvalidDocumentError(fmt.Sprintf("document invalid against schema: %s", strings.Join(errs, "; ")))
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, doc); err != nil {
		return nil, dferrors.InvalidDocumentError(err.Error())
	}
	return buf.Bytes(), nil
}
