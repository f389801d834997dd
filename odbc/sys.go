package odbc

import "fmt"

// ReturnCode is the raw value a driver call reports.
type ReturnCode int16

const (
	Success         ReturnCode = 0
	SuccessWithInfo ReturnCode = 1
	StillExecuting  ReturnCode = 2
	NeedData        ReturnCode = 99
	NoData          ReturnCode = 100
	Error           ReturnCode = -1
	InvalidHandle   ReturnCode = -2
)

func (rc ReturnCode) String() string {
	switch rc {
	case Success:
		return "SQL_SUCCESS"
	case SuccessWithInfo:
		return "SQL_SUCCESS_WITH_INFO"
	case StillExecuting:
		return "SQL_STILL_EXECUTING"
	case NeedData:
		return "SQL_NEED_DATA"
	case NoData:
		return "SQL_NO_DATA"
	case Error:
		return "SQL_ERROR"
	case InvalidHandle:
		return "SQL_INVALID_HANDLE"
	}
	return fmt.Sprintf("SQLRETURN(%d)", int16(rc))
}

// SQLType identifies the SQL data type of a column or parameter.
type SQLType int16

const (
	TypeUnknown       SQLType = 0
	TypeChar          SQLType = 1
	TypeNumeric       SQLType = 2
	TypeDecimal       SQLType = 3
	TypeInteger       SQLType = 4
	TypeSmallInt      SQLType = 5
	TypeFloat         SQLType = 6
	TypeReal          SQLType = 7
	TypeDouble        SQLType = 8
	TypeVarchar       SQLType = 12
	TypeBoolean       SQLType = 16
	TypeDate          SQLType = 91
	TypeTime          SQLType = 92
	TypeTimestamp     SQLType = 93
	TypeLongVarchar   SQLType = -1
	TypeBinary        SQLType = -2
	TypeVarbinary     SQLType = -3
	TypeLongVarbinary SQLType = -4
	TypeBigInt        SQLType = -5
	TypeTinyInt       SQLType = -6
	TypeBit           SQLType = -7
	TypeWChar         SQLType = -8
	TypeWVarchar      SQLType = -9
	TypeWLongVarchar  SQLType = -10
)

// IsNumeric reports whether values of the type are numbers.
func (t SQLType) IsNumeric() bool {
	switch t {
	case TypeNumeric, TypeDecimal, TypeInteger, TypeSmallInt, TypeFloat, TypeReal,
		TypeDouble, TypeBigInt, TypeTinyInt:
		return true
	}
	return false
}

// CDataType identifies the host-side layout of a bound buffer.
type CDataType int16

const (
	CChar    CDataType = 1
	CDouble  CDataType = 8
	CBit     CDataType = -7
	CBinary  CDataType = -2
	CSBigInt CDataType = -25
)

// ParamType is the direction of a bound parameter.
type ParamType int16

const (
	ParamInput       ParamType = 1
	ParamInputOutput ParamType = 2
	ParamOutput      ParamType = 4
)

// FreeStmtOption selects what SQLFreeStmt releases.
type FreeStmtOption uint16

const (
	FreeClose       FreeStmtOption = 0
	FreeDrop        FreeStmtOption = 1
	FreeUnbind      FreeStmtOption = 2
	FreeResetParams FreeStmtOption = 3
)

// StatementAttribute selects a statement attribute for SQLSetStmtAttr.
type StatementAttribute int32

const (
	AttrRowArraySize StatementAttribute = 27
	AttrParamsetSize StatementAttribute = 22
	AttrMetadataID   StatementAttribute = 10014
)

// Desc selects a column attribute for SQLColAttribute.
type Desc uint16

const (
	DescDisplaySize Desc = 6
	DescUnsigned    Desc = 8
	DescTypeName    Desc = 14
	DescTableName   Desc = 15
	DescConciseType Desc = 2
	DescType        Desc = 1002
	DescPrecision   Desc = 1005
	DescScale       Desc = 1006
	DescNullable    Desc = 1008
	DescName        Desc = 1011
	DescOctetLength Desc = 1013
)

// Indicator values understood by drivers in ParameterBinding.Indicators.
const (
	NullData   int64 = -1
	DataAtExec int64 = -2
	NTS        int64 = -3
)

// LenDataAtExec returns the indicator announcing a delayed parameter whose
// total length is known in advance.
func LenDataAtExec(length int64) int64 {
	const offset = -100
	return offset - length
}

// DataAtExecLength reports whether ind marks a delayed parameter and, when
// the caller announced it, the total length.
func DataAtExecLength(ind int64) (length int64, known bool, delayed bool) {
	switch {
	case ind == DataAtExec:
		return 0, false, true
	case ind <= -100:
		return -100 - ind, true, true
	}
	return 0, false, false
}
