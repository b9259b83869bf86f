// Package db embeds the checkout service database schema.
package db

import _ "embed"

// Schema contains the DDL for the products, customers, sales and
// draft session tables.
//
//go:embed migrations/001_schema.sql
var Schema string
