// Package core defines the shared language of the sqlsense system.
//
// This package contains:
//   - Schema metadata entities (TableInfo, ColumnInfo, ForeignKey, ...)
//   - Connection configuration (ConnectionConfig)
//   - Diagnostic severities
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
