// Package validation checks wizard payloads against JSON schemas before they
// reach the backend.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// formFieldsSchema covers the POST /applications/{id}/form payload: a list of
// {field, value} pairs with digits-plus-single-decimal-point numeric values.
const formFieldsSchema = `{
	"type": "object",
	"properties": {
		"fields": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"field": {"type": "string", "minLength": 1},
					"value": {"type": "string"}
				},
				"required": ["field", "value"],
				"additionalProperties": false
			}
		}
	},
	"required": ["fields"],
	"additionalProperties": false
}`

// paymentSchema covers the POST /applications/{id}/pay payload.
const paymentSchema = `{
	"type": "object",
	"properties": {
		"amount": {"type": "number", "minimum": 0},
		"method": {"type": "string", "enum": ["card", "transfer", "cash"]}
	},
	"required": ["amount", "method"],
	"additionalProperties": false
}`

var (
	formFieldsCompiled *gojsonschema.Schema
	paymentCompiled    *gojsonschema.Schema
)

func init() {
	var err error
	formFieldsCompiled, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(formFieldsSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid form fields schema: %v", err))
	}
	paymentCompiled, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(paymentSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid payment schema: %v", err))
	}
}

// ValidateFormFields validates a form submission document.
func ValidateFormFields(doc interface{}) *ValidationResult {
	return validate(formFieldsCompiled, doc)
}

// ValidatePayment validates a payment submission document.
func ValidatePayment(doc interface{}) *ValidationResult {
	return validate(paymentCompiled, doc)
}

func validate(schema *gojsonschema.Schema, doc interface{}) *ValidationResult {
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "", Message: err.Error()}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
		})
	}
	return out
}
