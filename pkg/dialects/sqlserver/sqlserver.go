// Package sqlserver provides the Microsoft SQL Server dialect.
package sqlserver

import "github.com/leapstack-labs/sqlsense/pkg/dialect"

func init() {
	dialect.Register(SQLServer)
}

// SQLServer is the T-SQL dialect.
var SQLServer = dialect.NewDialect("sqlserver", dialect.SQLServer).
	DisplayName("SQL Server").
	Keywords(dialect.StandardKeywords...).
	Keywords(
		"TOP", "NOLOCK", "IDENTITY", "OUTPUT", "MERGE", "MATCHED", "PROCEDURE", "PROC",
		"DECLARE", "NOCOUNT", "GO", "APPLY", "PIVOT", "UNPIVOT", "TRY", "CATCH", "RAISERROR",
	).
	StatementKeywords("EXEC", "EXECUTE").
	DataTypes(dialect.StandardDataTypes...).
	DataTypes("NVARCHAR", "NCHAR", "DATETIME2", "DATETIMEOFFSET", "BIT", "MONEY", "UNIQUEIDENTIFIER", "VARBINARY", "TINYINT").
	Functions(dialect.StandardFunctions...).
	Functions(
		dialect.Agg("STRING_AGG", "Concatenates values with a separator.", "NVARCHAR",
			dialect.P("expression", "nvarchar"), dialect.P("separator", "nvarchar")),
		dialect.Agg("COUNT_BIG", "Counts rows returning BIGINT.", "BIGINT", dialect.P("expression", "any")),
		dialect.Fn("GETDATE", "Current date and time.", "DATETIME"),
		dialect.Fn("ISNULL", "Replaces NULL with a replacement value.", "any",
			dialect.P("check_expression", "any"), dialect.P("replacement_value", "any")),
		dialect.Fn("LEN", "Number of characters, excluding trailing spaces.", "INT", dialect.P("string", "nvarchar")),
		dialect.Fn("CHARINDEX", "Position of a substring.", "INT",
			dialect.P("substring", "nvarchar"), dialect.P("string", "nvarchar"), dialect.Opt("start", "int")),
		dialect.Fn("DATEADD", "Adds an interval to a date.", "DATETIME",
			dialect.P("datepart", "keyword"), dialect.P("number", "int"), dialect.P("date", "datetime")),
		dialect.Fn("DATEDIFF", "Difference between two dates.", "INT",
			dialect.P("datepart", "keyword"), dialect.P("startdate", "datetime"), dialect.P("enddate", "datetime")),
		dialect.Fn("NEWID", "Creates a unique identifier.", "UNIQUEIDENTIFIER"),
		dialect.Fn("CONVERT", "Converts an expression to a data type.", "any",
			dialect.P("data_type", "type"), dialect.P("expression", "any"), dialect.Opt("style", "int")),
	).
	KeywordDocs(dialect.StandardKeywordDocs).
	KeywordDocs(map[string]string{
		"EXEC": "Executes a stored procedure.\n\n```sql\nEXEC procedure_name @param = value;\n```",
		"TOP":  "Limits the number of rows returned.",
	}).
	FromKeywords("APPLY").
	DefaultSchema("dbo").
	IdentQuote("[").
	PlaceholderStyle(dialect.PlaceholderAtP).
	Build()
