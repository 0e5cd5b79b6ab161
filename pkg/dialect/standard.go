package dialect

// This file holds the standard SQL vocabulary shared by the concrete dialects.
// Dialect packages compose from these lists and add their own entries.

// StandardKeywords are the keywords common to the SQL dialects.
var StandardKeywords = []string{
	"SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "IN", "IS", "NULL", "LIKE", "BETWEEN",
	"EXISTS", "AS", "ON", "USING", "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "OUTER", "CROSS",
	"NATURAL", "GROUP", "BY", "HAVING", "ORDER", "ASC", "DESC", "LIMIT", "OFFSET", "DISTINCT",
	"ALL", "ANY", "SOME", "UNION", "EXCEPT", "INTERSECT", "CASE", "WHEN", "THEN", "ELSE", "END",
	"CAST", "INSERT", "INTO", "VALUES", "UPDATE", "SET", "DELETE", "CREATE", "ALTER", "DROP",
	"TABLE", "VIEW", "INDEX", "UNIQUE", "PRIMARY", "KEY", "FOREIGN", "REFERENCES", "DEFAULT",
	"CONSTRAINT", "CHECK", "WITH", "RECURSIVE", "TRIGGER", "BEGIN", "COMMIT", "ROLLBACK",
	"TRANSACTION", "IF", "TRUE", "FALSE", "COLLATE", "ESCAPE", "OVER", "PARTITION", "WINDOW",
	"ROWS", "RANGE", "PRECEDING", "FOLLOWING", "CURRENT", "ROW", "UNBOUNDED", "RETURNING",
	"TRUNCATE", "GRANT", "REVOKE", "COLUMN", "ADD", "RENAME", "TO", "CASCADE", "RESTRICT",
	"TEMPORARY", "TEMP", "REPLACE",
}

// StandardDataTypes are type names most SQL databases accept.
var StandardDataTypes = []string{
	"INTEGER", "INT", "SMALLINT", "BIGINT", "DECIMAL", "NUMERIC", "REAL", "FLOAT", "DOUBLE",
	"CHAR", "VARCHAR", "TEXT", "BOOLEAN", "DATE", "TIME", "TIMESTAMP", "BLOB",
}

// StandardFunctions is the function catalog shared by the SQL dialects.
var StandardFunctions = []Function{
	Agg("COUNT", "Counts rows or non-null values.", "INTEGER", P("expression", "any")),
	Agg("SUM", "Sums numeric values.", "NUMERIC", P("expression", "numeric")),
	Agg("AVG", "Averages numeric values.", "NUMERIC", P("expression", "numeric")),
	Agg("MIN", "Returns the minimum value.", "any", P("expression", "any")),
	Agg("MAX", "Returns the maximum value.", "any", P("expression", "any")),
	Fn("UPPER", "Converts a string to upper case.", "TEXT", P("string", "text")),
	Fn("LOWER", "Converts a string to lower case.", "TEXT", P("string", "text")),
	Fn("LENGTH", "Returns the length of a string.", "INTEGER", P("string", "text")),
	Fn("TRIM", "Removes leading and trailing characters.", "TEXT", P("string", "text"), Opt("characters", "text")),
	Fn("LTRIM", "Removes leading characters.", "TEXT", P("string", "text"), Opt("characters", "text")),
	Fn("RTRIM", "Removes trailing characters.", "TEXT", P("string", "text"), Opt("characters", "text")),
	Fn("SUBSTR", "Extracts a substring.", "TEXT", P("string", "text"), P("start", "integer"), Opt("length", "integer")),
	Fn("REPLACE", "Replaces every occurrence of a substring.", "TEXT", P("string", "text"), P("from", "text"), P("to", "text")),
	Fn("COALESCE", "Returns the first non-null argument.", "any", P("value", "any"), P("fallback", "any")),
	Fn("NULLIF", "Returns NULL when both arguments are equal.", "any", P("value1", "any"), P("value2", "any")),
	Fn("ABS", "Absolute value.", "NUMERIC", P("number", "numeric")),
	Fn("ROUND", "Rounds a number.", "NUMERIC", P("number", "numeric"), Opt("digits", "integer")),
}

// StandardKeywordDocs documents the keywords users hover most often.
var StandardKeywordDocs = map[string]string{
	"SELECT":   "Retrieves rows from one or more tables.\n\n```sql\nSELECT column1, column2 FROM table_name;\n```",
	"FROM":     "Specifies the tables or subqueries a query reads from.",
	"WHERE":    "Filters rows using a boolean condition.",
	"JOIN":     "Combines rows from two tables based on a related column.",
	"INNER":    "INNER JOIN returns rows with matches in both tables.",
	"LEFT":     "LEFT JOIN returns all rows from the left table and matching rows from the right.",
	"RIGHT":    "RIGHT JOIN returns all rows from the right table and matching rows from the left.",
	"ON":       "Specifies the join condition.",
	"GROUP":    "GROUP BY groups rows sharing values so aggregates can be computed per group.",
	"HAVING":   "Filters groups produced by GROUP BY.",
	"ORDER":    "ORDER BY sorts the result set.",
	"LIMIT":    "Restricts the number of rows returned.",
	"OFFSET":   "Skips a number of rows before returning results.",
	"DISTINCT": "Removes duplicate rows from the result.",
	"UNION":    "Combines the results of two queries, removing duplicates unless ALL is given.",
	"INSERT":   "Adds new rows to a table.\n\n```sql\nINSERT INTO table_name (col1, col2) VALUES (v1, v2);\n```",
	"UPDATE":   "Modifies existing rows.\n\n```sql\nUPDATE table_name SET col1 = v1 WHERE condition;\n```",
	"DELETE":   "Removes rows from a table.\n\n```sql\nDELETE FROM table_name WHERE condition;\n```",
	"CREATE":   "Creates a database object such as a table, view, or index.",
	"ALTER":    "Changes the definition of an existing object.",
	"DROP":     "Removes a database object.",
	"WITH":     "Defines common table expressions usable by the following statement.",
	"CASE":     "Conditional expression.\n\n```sql\nCASE WHEN condition THEN result ELSE other END\n```",
	"CAST":     "Converts a value to another type.\n\n```sql\nCAST(expression AS type)\n```",
	"EXISTS":   "True when the subquery returns at least one row.",
	"BETWEEN":  "Tests whether a value lies within an inclusive range.",
	"LIKE":     "Pattern match with % and _ wildcards.",
	"IN":       "Tests membership in a list or subquery result.",
	"AS":       "Introduces an alias for a column or table.",
}
