package trace

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tomyedwab/odbcstream/odbc"
)

// Wrap returns a handle that forwards every call to h and records it under
// statement. If h can fetch rows, so can the returned handle.
func Wrap(h odbc.Handle, rec *Recorder, statement string) odbc.Handle {
	t := &handle{inner: h, rec: rec, statement: statement}
	if f, ok := h.(fetcher); ok {
		return &fetchingHandle{handle: t, fetcher: f}
	}
	return t
}

type fetcher interface {
	Fetch(maxRows int) ([][]interface{}, error)
}

type handle struct {
	inner     odbc.Handle
	rec       *Recorder
	statement string
	seq       int
}

func (t *handle) record(function string, rc odbc.ReturnCode, format string, args ...any) odbc.ReturnCode {
	t.seq++
	detail := fmt.Sprintf(format, args...)
	if err := t.rec.Record(t.statement, t.seq, function, rc, detail); err != nil {
		t.rec.logger.Warn("Failed to record driver call", "statement", t.statement, "function", function, "error", err)
	}
	return rc
}

func optional(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%q", *s)
}

func (t *handle) FreeStmt(option odbc.FreeStmtOption) odbc.ReturnCode {
	return t.record("SQLFreeStmt", t.inner.FreeStmt(option), "option=%d", option)
}

func (t *handle) SetStmtAttr(attr odbc.StatementAttribute, value int) odbc.ReturnCode {
	return t.record("SQLSetStmtAttr", t.inner.SetStmtAttr(attr, value), "attr=%d value=%d", attr, value)
}

func (t *handle) BindParameter(b *odbc.ParameterBinding) odbc.ReturnCode {
	return t.record("SQLBindParameter", t.inner.BindParameter(b),
		"number=%d ctype=%d sqltype=%d size=%d", b.Number, b.CType, b.DataType.SQLType, b.DataType.ColumnSize)
}

func (t *handle) Prepare(text string) odbc.ReturnCode {
	return t.record("SQLPrepare", t.inner.Prepare(text), "%s", text)
}

func (t *handle) ExecDirect(text string) odbc.ReturnCode {
	return t.record("SQLExecDirect", t.inner.ExecDirect(text), "%s", text)
}

func (t *handle) Execute() odbc.ReturnCode {
	return t.record("SQLExecute", t.inner.Execute(), "")
}

func (t *handle) ParamData() (odbc.Token, odbc.ReturnCode) {
	token, rc := t.inner.ParamData()
	if rc == odbc.NeedData {
		return token, t.record("SQLParamData", rc, "token=%d", token)
	}
	return token, t.record("SQLParamData", rc, "")
}

func (t *handle) PutData(batch []byte) odbc.ReturnCode {
	return t.record("SQLPutData", t.inner.PutData(batch), "len=%d", len(batch))
}

func (t *handle) DescribeParam(number uint16) (odbc.ParameterDescription, odbc.ReturnCode) {
	desc, rc := t.inner.DescribeParam(number)
	return desc, t.record("SQLDescribeParam", rc, "number=%d sqltype=%d size=%d", number, desc.DataType.SQLType, desc.DataType.ColumnSize)
}

func (t *handle) NumResultCols() (int16, odbc.ReturnCode) {
	n, rc := t.inner.NumResultCols()
	return n, t.record("SQLNumResultCols", rc, "count=%d", n)
}

func (t *handle) DescribeCol(column uint16, name []byte) (odbc.ColumnInfo, odbc.ReturnCode) {
	info, rc := t.inner.DescribeCol(column, name)
	return info, t.record("SQLDescribeCol", rc, "column=%d buflen=%d namelen=%d", column, len(name), info.NameLength)
}

func (t *handle) ColAttributeString(column uint16, field odbc.Desc, buf []byte) (int, odbc.ReturnCode) {
	n, rc := t.inner.ColAttributeString(column, field, buf)
	return n, t.record("SQLColAttribute", rc, "column=%d field=%d buflen=%d len=%d", column, field, len(buf), n)
}

func (t *handle) ColAttributeNumeric(column uint16, field odbc.Desc) (int64, odbc.ReturnCode) {
	v, rc := t.inner.ColAttributeNumeric(column, field)
	return v, t.record("SQLColAttribute", rc, "column=%d field=%d value=%d", column, field, v)
}

func (t *handle) Columns(catalog, schema, table, column string) odbc.ReturnCode {
	rc := t.inner.Columns(catalog, schema, table, column)
	return t.record("SQLColumns", rc, "%s", strings.Join([]string{catalog, schema, table, column}, "."))
}

func (t *handle) Tables(catalog, schema, table, tableType *string) odbc.ReturnCode {
	rc := t.inner.Tables(catalog, schema, table, tableType)
	return t.record("SQLTables", rc, "catalog=%s schema=%s table=%s type=%s",
		optional(catalog), optional(schema), optional(table), optional(tableType))
}

func (t *handle) CloseCursor() odbc.ReturnCode {
	return t.record("SQLCloseCursor", t.inner.CloseCursor(), "")
}

func (t *handle) Diagnostic() *odbc.Diagnostic {
	return t.inner.Diagnostic()
}

func (t *handle) Free() error {
	err := t.inner.Free()
	rc := odbc.Success
	if err != nil {
		rc = odbc.Error
	}
	t.record("SQLFreeHandle", rc, "")
	return err
}

// fetchingHandle also forwards row fetches to a handle that supports them.
type fetchingHandle struct {
	*handle
	fetcher fetcher
}

func (t *fetchingHandle) Fetch(maxRows int) ([][]interface{}, error) {
	rows, err := t.fetcher.Fetch(maxRows)
	rc := odbc.Success
	if err != nil {
		rc = odbc.Error
		if errors.Is(err, io.EOF) {
			rc = odbc.NoData
		}
	}
	t.record("SQLFetch", rc, "max=%d rows=%d", maxRows, len(rows))
	return rows, err
}
