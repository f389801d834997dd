// Package driver is the client side of the statement proxy: an odbc.Handle
// whose calls are executed by a host process, and a database/sql driver built
// on top of it.
//
// Every handle call is serialized into a JSON `StmtRequest` and passed to a
// host-provided function, which returns a JSON `StmtResponse` carrying the
// call's return code and diagnostic record.
//
// Usage with the odbc package:
//
//	conn := driver.NewConnection(host.HandleRequest)
//	defer conn.Close()
//
//	blob, err := odbc.OpenBlobFile("report.pdf", odbc.DefaultBatchSize, odbc.TypeLongVarbinary)
//	...
//	cursor, err := conn.Execute("INSERT INTO files (name, content) VALUES (?, ?)",
//	    odbc.NewParams(odbc.Text("report.pdf"), &odbc.BlobParam{Blob: blob}))
//
// Usage with database/sql:
//
//  1. Import the driver package. This will register the driver with the name "odbcproxy".
//     import _ "path/to/your/project/sqlproxy/driver"
//
//  2. Either set the package level handler before calling sql.Open
//
//     driver.SetHostHandler(host.HandleRequest)
//     db, err := sql.Open("odbcproxy", "") // DSN is currently ignored
//
//     or open a database with its own handler:
//
//     db := sql.OpenDB(driver.NewConnector(host.HandleRequest))
//
//  3. Use the *sql.DB object as usual. Arguments implementing io.Reader are
//     streamed to the host in batches instead of being sent with the
//     statement.
//
// Bound parameter buffers are kept by the client and sent with the execution
// request, so they must not change between binding and execution. Delayed
// parameters are streamed with one put_data request per batch after the host
// asks for them with param_data.
//
// Limitations:
//
//   - Transactions are not supported; Begin returns an error.
//   - Named parameters are not supported.
//   - LastInsertId is not reported.
package driver
