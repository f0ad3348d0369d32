// Package ingest turns delimited text into row records and checks that
// required fields are present before the rows are handed to a batch run.
package ingest
