package odbc

// Token is the opaque identity a driver reports from SQLParamData for the
// delayed parameter that needs its data. The driver returns the token the
// parameter was bound with.
type Token uint64

// Nullability of a column or parameter.
type Nullability int16

const (
	NoNulls         Nullability = 0
	Nullable        Nullability = 1
	NullableUnknown Nullability = 2
)

func (n Nullability) String() string {
	switch n {
	case NoNulls:
		return "NO_NULLS"
	case Nullable:
		return "NULLABLE"
	}
	return "UNKNOWN"
}

// DataType describes an SQL type together with its size and scale.
type DataType struct {
	SQLType       SQLType `json:"sql_type"`
	ColumnSize    uint64  `json:"column_size"`
	DecimalDigits int16   `json:"decimal_digits"`
}

// ColumnInfo is what SQLDescribeCol reports beside the column name.
type ColumnInfo struct {
	NameLength  int
	DataType    DataType
	Nullability Nullability
}

// ParameterDescription is what SQLDescribeParam reports for a parameter
// marker.
type ParameterDescription struct {
	DataType    DataType
	Nullability Nullability
}

// ParameterBinding describes one SQLBindParameter call. Value and Indicators
// are borrowed: the driver may read them until the execution that consumes
// the binding has returned.
type ParameterBinding struct {
	Number    uint16
	Direction ParamType
	CType     CDataType
	DataType  DataType
	// Value holds one element per parameter row, each ElementLen bytes wide.
	Value      []byte
	ElementLen int
	// Indicators holds one entry per parameter row: the byte length of the
	// element, NullData, DataAtExec or LenDataAtExec(n).
	Indicators []int64
	// Token is reported back by SQLParamData when the parameter is delayed.
	Token Token
}

// Handle is the call surface of a driver statement handle. Every method maps
// to one driver function and reports its raw return code. Implementations are
// not safe for concurrent use.
type Handle interface {
	FreeStmt(option FreeStmtOption) ReturnCode
	SetStmtAttr(attr StatementAttribute, value int) ReturnCode
	BindParameter(binding *ParameterBinding) ReturnCode
	Prepare(text string) ReturnCode
	ExecDirect(text string) ReturnCode
	Execute() ReturnCode
	ParamData() (Token, ReturnCode)
	PutData(batch []byte) ReturnCode
	// DescribeParam reports the type of parameter marker number (starting
	// at 1) of the prepared statement.
	DescribeParam(number uint16) (ParameterDescription, ReturnCode)
	NumResultCols() (int16, ReturnCode)
	// DescribeCol fills name with as much of the column name as fits and
	// reports the full name length in ColumnInfo.NameLength.
	DescribeCol(column uint16, name []byte) (ColumnInfo, ReturnCode)
	// ColAttributeString fills buf and returns the full length of the value.
	ColAttributeString(column uint16, field Desc, buf []byte) (int, ReturnCode)
	ColAttributeNumeric(column uint16, field Desc) (int64, ReturnCode)
	Columns(catalog, schema, table, column string) ReturnCode
	Tables(catalog, schema, table, tableType *string) ReturnCode
	CloseCursor() ReturnCode
	// Diagnostic returns the first diagnostic record of the last call.
	Diagnostic() *Diagnostic
	// Free releases the handle. The handle must not be used afterwards.
	Free() error
}
