// Package schemas embeds the JSON Schemas for qscore input files.
package schemas

import _ "embed"

// DatasetSchemaJSON validates eval dataset files (JSON or YAML).
//
//go:embed dataset.schema.json
var DatasetSchemaJSON string
