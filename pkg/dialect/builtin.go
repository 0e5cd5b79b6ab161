package dialect

// builtinGeneric backs For when no dialect package has been imported.
var builtinGeneric = NewDialect("generic", Generic).
	DisplayName("SQL").
	Keywords(StandardKeywords...).
	DataTypes(StandardDataTypes...).
	Functions(StandardFunctions...).
	KeywordDocs(StandardKeywordDocs).
	FromKeywords("LATERAL").
	Build()
