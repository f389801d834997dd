package odbc

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// ParameterCollection is a set of parameter bindings executed together.
type ParameterCollection interface {
	// ParameterSetSize is the number of parameter rows (the cardinality).
	// Zero means there is nothing to execute.
	ParameterSetSize() int
	// BindTo binds the collection's buffers to stmt. The buffers stay valid
	// until the execution that consumes them returns.
	BindTo(stmt *Statement) error
	// ResolveDelayed maps a token reported by SQLParamData back to the blob
	// bound at that slot.
	ResolveDelayed(token Token) (Blob, error)
}

// Parameter is a single value bound at a parameter slot.
type Parameter interface {
	// Bind binds the value at slot number. Delayed parameters register their
	// blob in delayed and bind with the token it returns.
	Bind(stmt *Statement, number uint16, delayed *DelayedTable) error
}

// DelayedTable maps parameter slots to the blobs streamed into them. Tokens
// handed to the driver are slot numbers, so resolution is a checked lookup.
type DelayedTable struct {
	blobs map[uint16]Blob
}

// Register records b as the source of slot and returns the token to bind.
func (t *DelayedTable) Register(slot uint16, b Blob) Token {
	if t.blobs == nil {
		t.blobs = make(map[uint16]Blob)
	}
	t.blobs[slot] = b
	return Token(slot)
}

// Resolve returns the blob registered for token.
func (t *DelayedTable) Resolve(token Token) (Blob, error) {
	if token > math.MaxUint16 {
		return nil, programmingError("SQLParamData", "driver reported token %d which is not a parameter slot", token)
	}
	b, ok := t.blobs[uint16(token)]
	if !ok {
		return nil, programmingError("SQLParamData", "no blob is bound at parameter slot %d", token)
	}
	return b, nil
}

// Len returns the number of registered blobs.
func (t *DelayedTable) Len() int { return len(t.blobs) }

func (t *DelayedTable) reset() {
	clear(t.blobs)
}

// Params is an ordered list of parameters bound at slots 1..n and executed
// once.
type Params struct {
	values  []Parameter
	delayed DelayedTable
}

// NewParams returns a collection binding values in order.
func NewParams(values ...Parameter) *Params {
	return &Params{values: values}
}

// NoParams executes a statement once without binding anything.
func NoParams() *Params {
	return &Params{}
}

func (p *Params) ParameterSetSize() int { return 1 }

func (p *Params) BindTo(stmt *Statement) error {
	p.delayed.reset()
	for i, v := range p.values {
		if err := v.Bind(stmt, uint16(i+1), &p.delayed); err != nil {
			return err
		}
	}
	return nil
}

func (p *Params) ResolveDelayed(token Token) (Blob, error) {
	return p.delayed.Resolve(token)
}

// Len returns the number of parameters.
func (p *Params) Len() int { return len(p.values) }

// scalar is a single-row input parameter owning its buffer and indicator.
type scalar struct {
	ctype     CDataType
	dataType  DataType
	value     []byte
	indicator [1]int64
}

func (p *scalar) Bind(stmt *Statement, number uint16, _ *DelayedTable) error {
	_, err := stmt.BindParameter(&ParameterBinding{
		Number:     number,
		Direction:  ParamInput,
		CType:      p.ctype,
		DataType:   p.dataType,
		Value:      p.value,
		ElementLen: len(p.value),
		Indicators: p.indicator[:],
	}).Into("SQLBindParameter")
	return err
}

func variableSize(n int) uint64 {
	return uint64(max(n, 1))
}

// Text binds s as character data.
func Text(s string) Parameter {
	b := []byte(s)
	return &scalar{
		ctype:     CChar,
		dataType:  DataType{SQLType: TypeVarchar, ColumnSize: variableSize(len(b))},
		value:     b,
		indicator: [1]int64{int64(len(b))},
	}
}

// Binary binds b as binary data. b is borrowed.
func Binary(b []byte) Parameter {
	return &scalar{
		ctype:     CBinary,
		dataType:  DataType{SQLType: TypeVarbinary, ColumnSize: variableSize(len(b))},
		value:     b,
		indicator: [1]int64{int64(len(b))},
	}
}

// Int64 binds v as a 64-bit integer in little-endian layout.
func Int64(v int64) Parameter {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return &scalar{
		ctype:     CSBigInt,
		dataType:  DataType{SQLType: TypeBigInt, ColumnSize: 19},
		value:     buf,
		indicator: [1]int64{8},
	}
}

// Float64 binds v as a double in little-endian layout.
func Float64(v float64) Parameter {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return &scalar{
		ctype:     CDouble,
		dataType:  DataType{SQLType: TypeDouble, ColumnSize: 15},
		value:     buf,
		indicator: [1]int64{8},
	}
}

// Bool binds v as a bit.
func Bool(v bool) Parameter {
	buf := []byte{0}
	if v {
		buf[0] = 1
	}
	return &scalar{
		ctype:     CBit,
		dataType:  DataType{SQLType: TypeBit, ColumnSize: 1},
		value:     buf,
		indicator: [1]int64{1},
	}
}

// Null binds NULL typed as dt.
func Null(dt DataType) Parameter {
	return &scalar{
		ctype:     CChar,
		dataType:  dt,
		indicator: [1]int64{NullData},
	}
}

// IntoParameter converts a host value into a parameter. Readers and blobs are
// streamed at execution time.
func IntoParameter(v any) (Parameter, error) {
	switch x := v.(type) {
	case nil:
		return Null(DataType{SQLType: TypeVarchar, ColumnSize: 1}), nil
	case Parameter:
		return x, nil
	case Blob:
		return &BlobParam{Blob: x}, nil
	case string:
		return Text(x), nil
	case []byte:
		if x == nil {
			return Null(DataType{SQLType: TypeVarbinary, ColumnSize: 1}), nil
		}
		return Binary(x), nil
	case int:
		return Int64(int64(x)), nil
	case int8:
		return Int64(int64(x)), nil
	case int16:
		return Int64(int64(x)), nil
	case int32:
		return Int64(int64(x)), nil
	case int64:
		return Int64(x), nil
	case uint8:
		return Int64(int64(x)), nil
	case uint16:
		return Int64(int64(x)), nil
	case uint32:
		return Int64(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("odbc: uint64 value %d overflows a BIGINT parameter", x)
		}
		return Int64(int64(x)), nil
	case float32:
		return Float64(float64(x)), nil
	case float64:
		return Float64(x), nil
	case bool:
		return Bool(x), nil
	case time.Time:
		return Text(x.Format(time.RFC3339Nano)), nil
	case io.Reader:
		return &BlobParam{Blob: NewBlobReader(x, DefaultBatchSize, TypeLongVarbinary)}, nil
	}
	return nil, fmt.Errorf("odbc: unsupported parameter type %T", v)
}
