// Package generic provides the dialect used when the driver is unknown.
//
// It accepts every keyword and additionally offers statement keywords from the
// other dialects at the lowest completion priority.
package generic

import "github.com/leapstack-labs/sqlsense/pkg/dialect"

func init() {
	dialect.Register(Generic)
}

// Generic is the fallback SQL dialect.
var Generic = dialect.NewDialect("generic", dialect.Generic).
	DisplayName("SQL").
	Keywords(dialect.StandardKeywords...).
	DataTypes(dialect.StandardDataTypes...).
	Functions(dialect.StandardFunctions...).
	KeywordDocs(dialect.StandardKeywordDocs).
	FromKeywords("LATERAL").
	CrossDialectKeywords(
		"PRAGMA", "ATTACH", "DETACH", "VACUUM",
		"SHOW", "USE", "DESCRIBE",
		"EXPLAIN", "ANALYZE",
		"EXEC", "EXECUTE",
	).
	Build()
