// Package odbc executes statements against an ODBC-style driver handle.
//
// The driver surface is the Handle interface: one method per driver call,
// each reporting the raw return code. Statement wraps a Handle, classifies
// return codes into four-way outcomes and tracks whether the handle is idle,
// executing or holding an open result set.
//
// Execution goes through ExecuteWithParameters:
//
//	stmt := odbc.NewTransientStatement(h)
//	cursor, err := odbc.ExecuteWithParameters(
//	    func() (*odbc.Statement, error) { return stmt, nil },
//	    &query,
//	    odbc.NewParams(odbc.Int64(42), &odbc.BlobParam{Blob: blob}),
//	)
//
// Delayed parameters (blobs) are bound with a data-at-execution indicator.
// When the driver asks for their data, each blob is streamed batch by batch
// until it is exhausted before the driver is asked for the next one. A nil
// cursor means the statement produced no result set.
//
// Variable-length metadata such as column names is read into caller buffers.
// If a value does not fit, the buffer is grown to the length the driver
// reported and the call is repeated exactly once.
package odbc
