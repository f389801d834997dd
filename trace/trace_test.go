package trace

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/odbcstream/odbc"
	"github.com/tomyedwab/odbcstream/sqlproxy/driver"
	"github.com/tomyedwab/odbcstream/sqlproxy/host"
)

// setupTestDB creates a temporary test database
func setupTestDB(t *testing.T, name string) *sqlx.DB {
	tmpDir := t.TempDir()
	dbPath := path.Join(tmpDir, name)
	db := sqlx.MustConnect("sqlite3", dbPath)
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

func TestDBInit(t *testing.T) {
	db := setupTestDB(t, "test_trace.db")
	if err := DBInit(db); err != nil {
		t.Fatalf("DBInit returned error: %v", err)
	}

	var tableName string
	err := db.Get(&tableName, "SELECT name FROM sqlite_master WHERE type='table' AND name='driver_calls'")
	if err != nil {
		t.Fatalf("Table 'driver_calls' does not exist: %v", err)
	}

	var count int
	err = db.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND tbl_name='driver_calls'")
	if err != nil {
		t.Fatalf("Failed to query indexes: %v", err)
	}
	if count < 2 {
		t.Errorf("Expected at least 2 indexes, got %d", count)
	}

	// Running it twice is harmless
	if err := DBInit(db); err != nil {
		t.Fatalf("Second DBInit returned error: %v", err)
	}
}

func TestRecordAndCalls(t *testing.T) {
	rec, err := NewRecorder(setupTestDB(t, "test_trace.db"))
	if err != nil {
		t.Fatalf("NewRecorder returned error: %v", err)
	}

	if err := rec.Record("stmt-1", 2, "SQLExecute", odbc.NeedData, ""); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := rec.Record("stmt-1", 1, "SQLPrepare", odbc.Success, "SELECT 1"); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := rec.Record("stmt-2", 1, "SQLPrepare", odbc.Error, "SELEC 1"); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	calls, err := rec.Calls("stmt-1")
	if err != nil {
		t.Fatalf("Calls returned error: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("Expected 2 calls, got %d", len(calls))
	}
	if calls[0].Function != "SQLPrepare" || calls[0].Detail != "SELECT 1" {
		t.Errorf("Unexpected first call %+v", calls[0])
	}
	if calls[1].Return() != odbc.NeedData {
		t.Errorf("Expected NeedData, got %d", calls[1].ReturnCode)
	}
	if calls[0].ID == calls[1].ID || calls[0].ID == "" {
		t.Error("Expected distinct call IDs")
	}

	prepares, err := rec.CallsByFunction("SQLPrepare", 10)
	if err != nil {
		t.Fatalf("CallsByFunction returned error: %v", err)
	}
	if len(prepares) != 2 {
		t.Errorf("Expected 2 prepare calls, got %d", len(prepares))
	}

	deleted, err := rec.DeleteOldCalls(-time.Hour)
	if err != nil {
		t.Fatalf("DeleteOldCalls returned error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 deleted calls, got %d", deleted)
	}
}

func tracedConnection(t *testing.T) (*driver.Connection, *Recorder, *[]string) {
	hostDB := setupTestDB(t, "test_host.db")
	hostDB.MustExec("CREATE TABLE files (name TEXT, content BLOB)")
	h := host.NewSQLHost(hostDB, nil)

	rec, err := NewRecorder(setupTestDB(t, "test_trace.db"))
	if err != nil {
		t.Fatalf("NewRecorder returned error: %v", err)
	}

	var ids []string
	conn := driver.NewConnection(h.HandleRequest)
	conn.Wrap = func(dh *driver.Handle) odbc.Handle {
		ids = append(ids, dh.ID())
		return Wrap(dh, rec, dh.ID())
	}
	return conn, rec, &ids
}

func TestWrapRecordsStreamingSequence(t *testing.T) {
	conn, rec, ids := tracedConnection(t)

	blob := odbc.NewBlobSlice(odbc.TypeLongVarbinary, []byte("abc"), []byte("de"))
	cursor, err := conn.Execute("INSERT INTO files (name, content) VALUES (?, ?)",
		odbc.NewParams(odbc.Text("a"), &odbc.BlobParam{Blob: blob}))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if cursor != nil {
		t.Fatal("Expected no cursor")
	}

	calls, err := rec.Calls((*ids)[0])
	if err != nil {
		t.Fatalf("Calls returned error: %v", err)
	}
	expected := []struct {
		function string
		rc       odbc.ReturnCode
		detail   string
	}{
		{"SQLFreeStmt", odbc.Success, ""},
		{"SQLSetStmtAttr", odbc.Success, ""},
		{"SQLBindParameter", odbc.Success, ""},
		{"SQLBindParameter", odbc.Success, ""},
		{"SQLExecDirect", odbc.NeedData, ""},
		{"SQLParamData", odbc.NeedData, ""},
		{"SQLPutData", odbc.Success, "len=3"},
		{"SQLPutData", odbc.Success, "len=2"},
		{"SQLParamData", odbc.Success, ""},
		{"SQLNumResultCols", odbc.Success, "count=0"},
		{"SQLFreeHandle", odbc.Success, ""},
	}
	if len(calls) != len(expected) {
		t.Fatalf("Expected %d calls, got %d: %+v", len(expected), len(calls), calls)
	}
	for i, want := range expected {
		got := calls[i]
		if got.Seq != i+1 {
			t.Errorf("Call %d: expected seq %d, got %d", i, i+1, got.Seq)
		}
		if got.Function != want.function || got.Return() != want.rc {
			t.Errorf("Call %d: expected %s -> %d, got %s -> %d", i, want.function, want.rc, got.Function, got.ReturnCode)
		}
		if want.detail != "" && got.Detail != want.detail {
			t.Errorf("Call %d: expected detail %q, got %q", i, want.detail, got.Detail)
		}
	}
}

func TestWrapForwardsFetch(t *testing.T) {
	conn, rec, ids := tracedConnection(t)

	cursor, err := conn.Execute("SELECT 1 AS one", odbc.NoParams())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	rs, err := driver.OpenResultSet(cursor, 10)
	if err != nil {
		t.Fatalf("OpenResultSet returned error: %v", err)
	}
	row, err := rs.Next()
	if err != nil || len(row) != 1 || row[0] != int64(1) {
		t.Fatalf("Unexpected row %v (%v)", row, err)
	}
	if err := rs.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	fetches, err := rec.CallsByFunction("SQLFetch", 10)
	if err != nil {
		t.Fatalf("CallsByFunction returned error: %v", err)
	}
	if len(fetches) != 1 || fetches[0].Statement != (*ids)[0] {
		t.Errorf("Expected one recorded fetch, got %+v", fetches)
	}

	calls, err := rec.Calls((*ids)[0])
	if err != nil {
		t.Fatalf("Calls returned error: %v", err)
	}
	last := calls[len(calls)-1]
	if last.Function != "SQLFreeHandle" || calls[len(calls)-2].Function != "SQLCloseCursor" {
		t.Errorf("Expected the cursor to be closed and the statement freed, got %+v", calls[len(calls)-2:])
	}
}

func TestWrapRecordsDescribeParam(t *testing.T) {
	conn, rec, _ := tracedConnection(t)

	prepared, err := conn.Prepare("SELECT content FROM files WHERE name = ?")
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	defer prepared.Free()
	if _, err := prepared.DescribeParam(1); err != nil {
		t.Fatalf("DescribeParam returned error: %v", err)
	}

	calls, err := rec.CallsByFunction("SQLDescribeParam", 10)
	if err != nil {
		t.Fatalf("CallsByFunction returned error: %v", err)
	}
	if len(calls) != 1 || calls[0].Detail != "number=1 sqltype=0 size=0" {
		t.Errorf("Expected one recorded SQLDescribeParam, got %+v", calls)
	}
}
