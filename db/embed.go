// Package db embeds the schema for the transactional store the print
// service reads from.
package db

import _ "embed"

// Schema contains the DDL for the transaction, payment, and tax-profile tables.
//
//go:embed migrations/001_schema.sql
var Schema string
