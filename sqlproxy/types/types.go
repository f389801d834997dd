package types

// --- JSON structures for host communication ---

// Commands understood by the host. Each maps to one statement handle call.
const (
	CmdAllocStmt     = "alloc_stmt"
	CmdFreeStmt      = "free_stmt"
	CmdSetStmtAttr   = "set_stmt_attr"
	CmdPrepare       = "prepare"
	CmdBindParameter = "bind_parameter"
	CmdExecDirect    = "exec_direct"
	CmdExecute       = "execute"
	CmdParamData     = "param_data"
	CmdPutData       = "put_data"
	CmdDescribeParam = "describe_param"
	CmdNumResultCols = "num_result_cols"
	CmdDescribeCol   = "describe_col"
	CmdColAttribute  = "col_attribute"
	CmdColumns       = "columns"
	CmdTables        = "tables"
	CmdCloseCursor   = "close_cursor"
	CmdFetch         = "fetch"
	CmdCloseConn     = "close_conn"
)

// StmtRequest defines the structure for requests sent to the host.
type StmtRequest struct {
	Command string `json:"command"`
	StmtID  string `json:"stmt_id,omitempty"`
	SQL     string `json:"sql,omitempty"`

	// free_stmt option, set_stmt_attr attribute and value
	Option    uint16 `json:"option,omitempty"`
	Attribute int32  `json:"attribute,omitempty"`
	Value     int    `json:"value,omitempty"`

	// bind_parameter carries the binding without values; exec_direct and
	// execute carry all bindings with the values current at execution time.
	Binding  *Binding  `json:"binding,omitempty"`
	Bindings []Binding `json:"bindings,omitempty"`

	Data []byte `json:"data,omitempty"` // put_data, base64 on the wire

	Parameter uint16 `json:"parameter,omitempty"` // describe_param

	// describe_col, col_attribute
	Column    uint16 `json:"column,omitempty"`
	Field     uint16 `json:"field,omitempty"`
	BufferLen int    `json:"buffer_len,omitempty"`

	// columns, tables
	Catalog    *string `json:"catalog,omitempty"`
	Schema     *string `json:"schema,omitempty"`
	Table      *string `json:"table,omitempty"`
	ColumnName *string `json:"column_name,omitempty"`
	TableType  *string `json:"table_type,omitempty"`

	MaxRows int `json:"max_rows,omitempty"` // fetch
}

// Binding is one bound parameter. Values and Indicators hold one entry per
// parameter row; a value is nil for NULL and delayed rows.
type Binding struct {
	Number        uint16   `json:"number"`
	Direction     int16    `json:"direction"`
	CType         int16    `json:"c_type"`
	SQLType       int16    `json:"sql_type"`
	ColumnSize    uint64   `json:"column_size"`
	DecimalDigits int16    `json:"decimal_digits"`
	Values        [][]byte `json:"values,omitempty"`
	Indicators    []int64  `json:"indicators"`
	Token         uint64   `json:"token,omitempty"`
}

// Diagnostic is the first diagnostic record of a call.
type Diagnostic struct {
	State       string `json:"state"`
	NativeError int32  `json:"native_error"`
	Message     string `json:"message"`
}

// StmtResponse is returned for every command. Return is the raw return code
// of the call; the remaining fields are set depending on the command.
type StmtResponse struct {
	Return     int16       `json:"return"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
	StmtID     string      `json:"stmt_id,omitempty"` // alloc_stmt

	Token uint64 `json:"token,omitempty"` // param_data
	Count int64  `json:"count,omitempty"` // num_result_cols, rows affected by execution

	// describe_col and string column attributes: Text is truncated to the
	// request's buffer, Length is the full length. describe_param sets the
	// type fields only.
	Text          string `json:"text,omitempty"`
	Length        int    `json:"length,omitempty"`
	SQLType       int16  `json:"sql_type,omitempty"`
	ColumnSize    uint64 `json:"column_size,omitempty"`
	DecimalDigits int16  `json:"decimal_digits,omitempty"`
	Nullable      int16  `json:"nullable,omitempty"`

	Numeric int64 `json:"numeric,omitempty"` // numeric column attributes

	Rows [][]interface{} `json:"rows,omitempty"` // fetch; []byte as base64, time.Time as RFC3339Nano
}
