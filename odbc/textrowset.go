package odbc

import "fmt"

// TextRowSet is a columnar buffer of text values bound as an array of
// parameter rows. Each column holds up to capacity elements of its maximum
// string length.
type TextRowSet struct {
	capacity int
	columns  []textColumn
	rows     int
}

type textColumn struct {
	maxLen     int
	values     []byte
	indicators []int64
}

// NewTextRowSet allocates a row set for capacity rows with one column per
// entry in maxStrLens.
func NewTextRowSet(capacity int, maxStrLens []int) *TextRowSet {
	columns := make([]textColumn, len(maxStrLens))
	for i, maxLen := range maxStrLens {
		maxLen = max(maxLen, 1)
		columns[i] = textColumn{
			maxLen:     maxLen,
			values:     make([]byte, capacity*(maxLen+1)),
			indicators: make([]int64, capacity),
		}
	}
	return &TextRowSet{capacity: capacity, columns: columns}
}

// Append copies row into the next free row. A nil field is NULL.
func (t *TextRowSet) Append(row [][]byte) error {
	if t.rows >= t.capacity {
		return fmt.Errorf("odbc: text row set is full (%d rows)", t.capacity)
	}
	if len(row) != len(t.columns) {
		return fmt.Errorf("odbc: row has %d fields, row set has %d columns", len(row), len(t.columns))
	}
	for i, field := range row {
		if len(field) > t.columns[i].maxLen {
			return fmt.Errorf("odbc: field %d is %d bytes long, column holds at most %d", i+1, len(field), t.columns[i].maxLen)
		}
	}
	for i, field := range row {
		col := &t.columns[i]
		if field == nil {
			col.indicators[t.rows] = NullData
			continue
		}
		elem := col.values[t.rows*(col.maxLen+1) : (t.rows+1)*(col.maxLen+1)]
		n := copy(elem, field)
		elem[n] = 0
		col.indicators[t.rows] = int64(n)
	}
	t.rows++
	return nil
}

// NumRows returns the number of appended rows.
func (t *TextRowSet) NumRows() int { return t.rows }

// NumCols returns the number of columns.
func (t *TextRowSet) NumCols() int { return len(t.columns) }

// Capacity returns the maximum number of rows.
func (t *TextRowSet) Capacity() int { return t.capacity }

// Clear drops all rows, keeping the buffers.
func (t *TextRowSet) Clear() { t.rows = 0 }

// At returns the value at row and column (both starting at 0) and whether it
// is not NULL.
func (t *TextRowSet) At(row, column int) ([]byte, bool) {
	col := &t.columns[column]
	ind := col.indicators[row]
	if ind == NullData {
		return nil, false
	}
	start := row * (col.maxLen + 1)
	return col.values[start : start+int(ind)], true
}

func (t *TextRowSet) ParameterSetSize() int { return t.rows }

func (t *TextRowSet) BindTo(stmt *Statement) error {
	for i := range t.columns {
		col := &t.columns[i]
		elemLen := col.maxLen + 1
		_, err := stmt.BindParameter(&ParameterBinding{
			Number:     uint16(i + 1),
			Direction:  ParamInput,
			CType:      CChar,
			DataType:   DataType{SQLType: TypeVarchar, ColumnSize: uint64(col.maxLen)},
			Value:      col.values[:t.rows*elemLen],
			ElementLen: elemLen,
			Indicators: col.indicators[:t.rows],
		}).Into("SQLBindParameter")
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *TextRowSet) ResolveDelayed(token Token) (Blob, error) {
	return nil, programmingError("SQLParamData", "text row sets bind no delayed parameters, driver reported token %d", token)
}
