// Package formatters turns database rows into the records exposed by the API.
//
// Rows are read column by column into a Record so that a row lacking an
// attribute, or holding NULL, formats to a nil field instead of failing.
//
//	rows, err := db.QueryContext(ctx, query, args...)
//	...
//	records, err := formatters.ScanRecords(rows)
//	etablissements := formatters.FormatEtablissements(records)
package formatters
