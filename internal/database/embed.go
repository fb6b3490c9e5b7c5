package database

import _ "embed"

// SchemaSQL is the base schema, applied by InitSchema on fresh databases.
//
//go:embed schema.sql
var SchemaSQL []byte
