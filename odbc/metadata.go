package odbc

// defaultVarLenCapacity is the buffer size used for variable-length metadata
// when the caller has no better guess.
const defaultVarLenCapacity = 32

// ColumnDescription is filled by DescribeCol. Name keeps its capacity between
// calls, so describing many columns with the same description value settles
// on a buffer large enough for most names.
type ColumnDescription struct {
	Name        []byte
	DataType    DataType
	Nullability Nullability
}

// NameString returns the column name as a string.
func (d *ColumnDescription) NameString() string {
	return string(d.Name)
}

// readVarLen fetches a variable-length value of unknown size. fill writes as
// much of the value as fits into its argument and reports the full length.
// When the value (plus a terminator) does not fit, the buffer grows to the
// reported length once and fill runs a second time; the driver then reports
// the exact length. The result reuses buf's capacity where possible.
func readVarLen(function string, buf []byte, fill func(buf []byte) (int, Outcome[struct{}])) ([]byte, error) {
	buf = buf[:cap(buf)]
	if len(buf) == 0 {
		buf = make([]byte, defaultVarLenCapacity)
	}

	n, o := fill(buf)
	if _, err := o.Into(function); err != nil {
		return buf[:0], err
	}
	if n < 0 {
		return buf[:0], programmingError(function, "driver reported negative length %d", n)
	}

	if n+1 > len(buf) {
		buf = make([]byte, n+1)
		m, o := fill(buf)
		if _, err := o.Into(function); err != nil {
			return buf[:0], err
		}
		if m < 0 || m+1 > len(buf) {
			return buf[:0], programmingError(function, "driver reported length %d after the buffer was resized for %d", m, n)
		}
		n = m
	}
	return buf[:n], nil
}

// DescribeCol describes column (starting at 1) into desc. desc is undefined
// if an error is returned.
func (s *Statement) DescribeCol(column uint16, desc *ColumnDescription) error {
	var info ColumnInfo
	name, err := readVarLen("SQLDescribeCol", desc.Name, func(buf []byte) (int, Outcome[struct{}]) {
		var rc ReturnCode
		info, rc = s.handle.DescribeCol(column, buf)
		return info.NameLength, s.classify("SQLDescribeCol", rc)
	})
	desc.Name = name
	if err != nil {
		return err
	}
	desc.DataType = info.DataType
	desc.Nullability = info.Nullability
	return nil
}

// DescribeParam describes parameter marker number (starting at 1) of the
// prepared statement.
func (s *Statement) DescribeParam(number uint16) (ParameterDescription, error) {
	if number == 0 {
		return ParameterDescription{}, programmingError("SQLDescribeParam", "parameter numbers start at 1")
	}
	desc, rc := s.handle.DescribeParam(number)
	return withValue(s.classify("SQLDescribeParam", rc), desc).Into("SQLDescribeParam")
}

// ColName returns the alias or name of column, reusing buf's capacity.
func (s *Statement) ColName(column uint16, buf []byte) ([]byte, error) {
	return s.colAttributeString(column, DescName, buf)
}

// ColTypeName returns the data source dependent type name of column.
func (s *Statement) ColTypeName(column uint16, buf []byte) ([]byte, error) {
	return s.colAttributeString(column, DescTypeName, buf)
}

func (s *Statement) colAttributeString(column uint16, field Desc, buf []byte) ([]byte, error) {
	return readVarLen("SQLColAttribute", buf, func(buf []byte) (int, Outcome[struct{}]) {
		n, rc := s.handle.ColAttributeString(column, field, buf)
		return n, s.classify("SQLColAttribute", rc)
	})
}

// ColumnNames returns the names of all result columns.
func (s *Statement) ColumnNames() ([]string, error) {
	n, err := s.NumResultCols().Into("SQLNumResultCols")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, invalidColumnCount(n)
	}
	names := make([]string, 0, n)
	var buf []byte
	for col := uint16(1); col <= uint16(n); col++ {
		buf, err = s.ColName(col, buf)
		if err != nil {
			return nil, err
		}
		names = append(names, string(buf))
	}
	return names, nil
}

func (s *Statement) numericColAttribute(field Desc, column uint16) (int64, error) {
	v, rc := s.handle.ColAttributeNumeric(column, field)
	return withValue(s.classify("SQLColAttribute", rc), v).Into("SQLColAttribute")
}

// IsUnsignedColumn reports whether column is unsigned or not numeric. Any
// driver answer other than 0 or 1 is an error.
func (s *Statement) IsUnsignedColumn(column uint16) (bool, error) {
	v, err := s.numericColAttribute(DescUnsigned, column)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, programmingError("SQLColAttribute", "unsigned column attribute must be 0 or 1, driver returned %d", v)
}

// ColDisplaySize is the maximum number of characters needed to display data
// from column.
func (s *Statement) ColDisplaySize(column uint16) (int64, error) {
	return s.numericColAttribute(DescDisplaySize, column)
}

// ColOctetLength is the size of column in bytes. Variable sized types report
// their maximum, excluding a terminating zero.
func (s *Statement) ColOctetLength(column uint16) (int64, error) {
	return s.numericColAttribute(DescOctetLength, column)
}

// ColPrecision is the applicable precision of column.
func (s *Statement) ColPrecision(column uint16) (int64, error) {
	return s.numericColAttribute(DescPrecision, column)
}

// ColScale is the applicable scale of a numeric column.
func (s *Statement) ColScale(column uint16) (int64, error) {
	return s.numericColAttribute(DescScale, column)
}

// ColType returns the SQL type of column.
func (s *Statement) ColType(column uint16) (SQLType, error) {
	v, err := s.numericColAttribute(DescType, column)
	return SQLType(v), err
}

// ColConciseType returns the concise SQL type of column. For datetime and
// interval types this is the concise type, e.g. TIME.
func (s *Statement) ColConciseType(column uint16) (SQLType, error) {
	v, err := s.numericColAttribute(DescConciseType, column)
	return SQLType(v), err
}
