package validation

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

const (
	SchemaPreferencesUpdate = "preferences-update"
	SchemaTrackRequest      = "track-request"
	SchemaAuthToken         = "auth-token"
	SchemaOrderCompleted    = "order-completed"
)

//go:embed schemas/*.json
var embeddedSchemas embed.FS

var schemaFiles = map[string]string{
	SchemaPreferencesUpdate: "preferences-update.json",
	SchemaTrackRequest:      "track-request.json",
	SchemaAuthToken:         "auth-token.json",
	SchemaOrderCompleted:    "order-completed.json",
}

// SchemaValidator checks JSON payloads against named JSON schemas.
type SchemaValidator struct {
	schemas   map[string]*gojsonschema.Schema
	documents map[string][]byte
}

// NewSchemaValidator returns a validator with the built-in schemas loaded.
func NewSchemaValidator() (*SchemaValidator, error) {
	sv := &SchemaValidator{
		schemas:   make(map[string]*gojsonschema.Schema),
		documents: make(map[string][]byte),
	}
	if err := sv.LoadSchemaFromFS(embeddedSchemas, "schemas"); err != nil {
		return nil, err
	}
	return sv, nil
}

// LoadSchemaFromFS loads every known schema file found under schemaDir.
func (sv *SchemaValidator) LoadSchemaFromFS(fsys fs.FS, schemaDir string) error {
	for name, filename := range schemaFiles {
		schemaBytes, err := fs.ReadFile(fsys, path.Join(schemaDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read schema file %s: %w", filename, err)
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
		if err != nil {
			return fmt.Errorf("failed to load schema %s: %w", name, err)
		}

		sv.schemas[name] = schema
		sv.documents[name] = schemaBytes
	}
	return nil
}

// Validate checks data, which may be a JSON string, raw JSON bytes or any
// value that marshals to JSON, against the named schema.
func (sv *SchemaValidator) Validate(schemaName string, data interface{}) *ValidationResult {
	schema, exists := sv.schemas[schemaName]
	if !exists {
		return invalid("schema", fmt.Sprintf("Schema '%s' not found", schemaName), "SCHEMA_NOT_FOUND")
	}

	var documentLoader gojsonschema.JSONLoader
	switch v := data.(type) {
	case string:
		documentLoader = gojsonschema.NewStringLoader(v)
	case []byte:
		documentLoader = gojsonschema.NewBytesLoader(v)
	default:
		jsonBytes, err := json.Marshal(data)
		if err != nil {
			return invalid("data", fmt.Sprintf("Failed to marshal data to JSON: %v", err), "JSON_MARSHAL_ERROR")
		}
		documentLoader = gojsonschema.NewBytesLoader(jsonBytes)
	}

	result, err := schema.Validate(documentLoader)
	if err != nil {
		return invalid("body", fmt.Sprintf("Document is not valid JSON: %v", err), "INVALID_JSON")
	}

	validationResult := &ValidationResult{
		Valid:  result.Valid(),
		Errors: make([]ValidationError, 0),
	}
	for _, resultErr := range result.Errors() {
		validationResult.Errors = append(validationResult.Errors, ValidationError{
			Field:   resultErr.Field(),
			Message: resultErr.Description(),
			Code:    "VALIDATION_ERROR",
			Value:   resultErr.Value(),
		})
	}

	return validationResult
}

// SchemaNames lists the loaded schemas in sorted order.
func (sv *SchemaValidator) SchemaNames() []string {
	names := make([]string, 0, len(sv.schemas))
	for name := range sv.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Document returns the raw JSON of a loaded schema.
func (sv *SchemaValidator) Document(schemaName string) ([]byte, bool) {
	doc, ok := sv.documents[schemaName]
	return doc, ok
}

func invalid(field, message, code string) *ValidationResult {
	return &ValidationResult{
		Valid:  false,
		Errors: []ValidationError{{Field: field, Message: message, Code: code}},
	}
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Value   interface{} `json:"value,omitempty"`
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// Err folds a failed result into a single error, or nil when valid.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	if len(vr.Errors) == 0 {
		return errors.New("validation failed")
	}
	return vr.Errors[0]
}

// ToAPIError renders the result in the API error envelope.
func (vr *ValidationResult) ToAPIError() map[string]interface{} {
	if vr.Valid {
		return nil
	}

	fieldErrors := make(map[string][]string)
	for _, err := range vr.Errors {
		if err.Field != "" {
			fieldErrors[err.Field] = append(fieldErrors[err.Field], err.Message)
		}
	}

	details := map[string]interface{}{
		"validationErrors": vr.Errors,
	}
	if len(fieldErrors) > 0 {
		details["fieldErrors"] = fieldErrors
	}

	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    "VALIDATION_ERROR",
			"message": "Request validation failed",
			"details": details,
		},
	}
}
