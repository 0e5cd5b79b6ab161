// Package mysql provides the MySQL / MariaDB dialect.
package mysql

import "github.com/leapstack-labs/sqlsense/pkg/dialect"

func init() {
	dialect.Register(MySQL)
}

// MySQL is the MySQL dialect, also used for MariaDB.
var MySQL = dialect.NewDialect("mysql", dialect.MySQL).
	DisplayName("MySQL").
	Keywords(dialect.StandardKeywords...).
	Keywords(
		"AUTO_INCREMENT", "ENGINE", "CHARSET", "DUPLICATE", "IGNORE", "REGEXP", "RLIKE",
		"STRAIGHT_JOIN", "UNSIGNED", "ZEROFILL", "DATABASES", "TABLES", "COLUMNS", "PROCEDURE",
		"FUNCTION", "CALL", "DELIMITER", "LOCK", "UNLOCK",
	).
	StatementKeywords("SHOW", "USE", "DESCRIBE").
	DataTypes(dialect.StandardDataTypes...).
	DataTypes("TINYINT", "MEDIUMINT", "DATETIME", "YEAR", "ENUM", "JSON", "LONGTEXT", "MEDIUMTEXT", "VARBINARY").
	Functions(dialect.StandardFunctions...).
	Functions(
		dialect.Agg("GROUP_CONCAT", "Concatenates values from a group.", "TEXT", dialect.P("expression", "any")),
		dialect.Fn("CONCAT", "Concatenates strings.", "TEXT", dialect.P("string1", "text"), dialect.P("string2", "text")),
		dialect.Fn("CONCAT_WS", "Concatenates strings with a separator.", "TEXT",
			dialect.P("separator", "text"), dialect.P("string1", "text"), dialect.P("string2", "text")),
		dialect.Fn("IFNULL", "Returns the first argument if not NULL, otherwise the second.", "any",
			dialect.P("value", "any"), dialect.P("fallback", "any")),
		dialect.Fn("IF", "Returns one of two values depending on a condition.", "any",
			dialect.P("condition", "boolean"), dialect.P("then", "any"), dialect.P("else", "any")),
		dialect.Fn("NOW", "Current date and time.", "DATETIME"),
		dialect.Fn("DATE_FORMAT", "Formats a date.", "TEXT", dialect.P("date", "datetime"), dialect.P("format", "text")),
		dialect.Fn("DATE_ADD", "Adds an interval to a date.", "DATETIME", dialect.P("date", "datetime"), dialect.P("interval", "interval")),
		dialect.Fn("DATEDIFF", "Days between two dates.", "INTEGER", dialect.P("date1", "date"), dialect.P("date2", "date")),
		dialect.Fn("SUBSTRING", "Extracts a substring.", "TEXT",
			dialect.P("string", "text"), dialect.P("position", "integer"), dialect.Opt("length", "integer")),
		dialect.Fn("JSON_EXTRACT", "Extracts data from a JSON document.", "JSON",
			dialect.P("json_doc", "json"), dialect.P("path", "text")),
	).
	KeywordDocs(dialect.StandardKeywordDocs).
	KeywordDocs(map[string]string{
		"SHOW":     "Displays information about databases, tables, columns, or server status.",
		"USE":      "Selects the default database.",
		"DESCRIBE": "Shows the column definitions of a table.",
	}).
	FromKeywords("STRAIGHT_JOIN", "LATERAL").
	IdentQuote("`").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	StringSyntax(dialect.StringSyntax{Backslash: true}).
	Build()
