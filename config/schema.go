package config

import _ "embed"

// Schema is the json schema of the configuration file.
//
//go:embed schema.json
var Schema []byte
