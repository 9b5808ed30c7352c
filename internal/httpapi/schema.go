package httpapi

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// uploadRequestSchema validates the JSON body of a file post. The data
// URI pattern is loose on purpose: the fetcher owns full parsing and
// reports its own errors.
const uploadRequestSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"name": {
			"type": "string",
			"minLength": 1,
			"maxLength": 512
		},
		"dataUri": {
			"type": "string",
			"pattern": "^data:",
			"minLength": 6
		}
	},
	"required": ["name", "dataUri"],
	"additionalProperties": false
}`

// compileUploadSchema compiles the upload request schema once at server
// construction.
func compileUploadSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(uploadRequestSchema))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("uploadrequest.json", doc); err != nil {
		return nil, err
	}
	return compiler.Compile("uploadrequest.json")
}
