package loader

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/andrewyatz/ensembl-registry/adaptor"
)

// documentSchema constrains the shape spec.md section 4.F requires of a
// decoded configuration document: adaptors, if present, must be an array;
// aliases, if present, must be an object whose values are arrays of
// strings. It intentionally does not require either property, matching
// the "missing adaptors/aliases key is tolerated" boundary behavior in
// spec.md section 8 — only *wrong-typed* properties are rejected here.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-04/schema#",
  "type": "object",
  "properties": {
    "adaptors": { "type": "array" },
    "aliases": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": { "type": "string" }
      }
    }
  }
}`

var compiledDocumentSchema *gojsonschema.Schema

func documentSchemaLoader() (*gojsonschema.Schema, error) {
	if compiledDocumentSchema != nil {
		return compiledDocumentSchema, nil
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	if err != nil {
		return nil, err
	}
	compiledDocumentSchema = schema
	return schema, nil
}

// validateRaw checks raw against documentSchema, the same
// validate-before-unmarshal shape the teacher's pkg/api.Validator uses
// with gojsonschema.NewGoLoader.
func validateRaw(raw map[string]interface{}) error {
	schema, err := documentSchemaLoader()
	if err != nil {
		return adaptor.NewError(adaptor.ErrorBackend, "could not compile document schema", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return adaptor.NewError(adaptor.ErrorBackend, "could not validate document", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			descriptions = append(descriptions, e.Field()+": "+e.Description())
		}
		msg := "invalid configuration document"
		if len(descriptions) > 0 {
			msg = descriptions[0]
		}
		return adaptor.NewError(adaptor.ErrorType, msg, nil)
	}

	return nil
}
