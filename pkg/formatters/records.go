package formatters

import (
	"database/sql"
	"fmt"
	"time"
)

// Record is one database row keyed by column name
type Record map[string]any

// ScanRecords reads every remaining row of rows into Records.
// The caller still owns rows and must close it.
func ScanRecords(rows *sql.Rows) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	records := make([]Record, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record := make(Record, len(columns))
		for i, column := range columns {
			record[column] = values[i]
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// GetValue returns the value of key as a string, or nil when the key is
// missing or the value is NULL
func GetValue(r Record, key string) *string {
	value, ok := r[key]
	if !ok || value == nil {
		return nil
	}

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case time.Time:
		s = v.Format("2006-01-02")
	case sql.NullString:
		if !v.Valid {
			return nil
		}
		s = v.String
	case *string:
		return v
	default:
		s = fmt.Sprint(v)
	}
	return &s
}
