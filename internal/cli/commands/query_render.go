package commands

import (
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/sqlsense/internal/cli/output"
)

// renderRows drains rows and renders them as a table, or as a list of
// objects in JSON mode.
func renderRows(r *output.Renderer, rows *sql.Rows) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	var results [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return err
		}
		for i, v := range values {
			// Convert []byte to string for readability
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		results = append(results, values)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		objects := make([]map[string]any, 0, len(results))
		for _, values := range results {
			obj := make(map[string]any, len(cols))
			for i, col := range cols {
				obj[col] = values[i]
			}
			objects = append(objects, obj)
		}
		return r.JSON(objects)
	}

	if len(results) == 0 {
		r.Println("(0 rows)")
		return nil
	}
	table := make([][]string, 0, len(results))
	for _, values := range results {
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		table = append(table, row)
	}
	r.Table(cols, table)
	r.Printf("(%d rows)\n", len(results))
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
