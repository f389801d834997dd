package odbc

import (
	"strings"
	"testing"
)

func TestDescribeColFitsFirstTime(t *testing.T) {
	h := newFakeHandle()
	h.names[1] = "id"
	stmt := NewStatement(h)

	var desc ColumnDescription
	if err := stmt.DescribeCol(1, &desc); err != nil {
		t.Fatalf("DescribeCol returned error: %v", err)
	}
	if desc.NameString() != "id" {
		t.Errorf("Expected name id, got %q", desc.NameString())
	}
	if desc.DataType.SQLType != TypeVarchar || desc.DataType.ColumnSize != 255 {
		t.Errorf("Unexpected data type %+v", desc.DataType)
	}
	if desc.Nullability != Nullable {
		t.Errorf("Expected nullable, got %s", desc.Nullability)
	}
	assertCalls(t, h.calls, "describe(1,32)")
}

func TestDescribeColRetriesOnce(t *testing.T) {
	h := newFakeHandle()
	long := strings.Repeat("x", 40)
	h.names[1] = long
	stmt := NewStatement(h)

	var desc ColumnDescription
	if err := stmt.DescribeCol(1, &desc); err != nil {
		t.Fatalf("DescribeCol returned error: %v", err)
	}
	if desc.NameString() != long {
		t.Errorf("Expected full name, got %q", desc.NameString())
	}
	if len(desc.Name) != 40 {
		t.Errorf("Expected length 40, got %d", len(desc.Name))
	}
	assertCalls(t, h.calls, "describe(1,32)", "describe(1,41)")
}

func TestDescribeColTerminatorForcesRetry(t *testing.T) {
	h := newFakeHandle()
	h.names[1] = strings.Repeat("y", 32)
	stmt := NewStatement(h)

	var desc ColumnDescription
	if err := stmt.DescribeCol(1, &desc); err != nil {
		t.Fatalf("DescribeCol returned error: %v", err)
	}
	if len(desc.Name) != 32 {
		t.Errorf("Expected length 32, got %d", len(desc.Name))
	}
	assertCalls(t, h.calls, "describe(1,32)", "describe(1,33)")
}

func TestDescribeColReusesCapacity(t *testing.T) {
	h := newFakeHandle()
	h.names[1] = strings.Repeat("a", 50)
	h.names[2] = "b"
	stmt := NewStatement(h)

	var desc ColumnDescription
	for col := uint16(1); col <= 2; col++ {
		if err := stmt.DescribeCol(col, &desc); err != nil {
			t.Fatalf("DescribeCol(%d) returned error: %v", col, err)
		}
	}
	if desc.NameString() != "b" {
		t.Errorf("Expected name b, got %q", desc.NameString())
	}
	assertCalls(t, h.calls, "describe(1,32)", "describe(1,51)", "describe(2,51)")
}

func TestDescribeColUnstableLength(t *testing.T) {
	h := newFakeHandle()
	h.names[1] = strings.Repeat("z", 40)
	h.nameLens = []int{40, 60}
	stmt := NewStatement(h)

	var desc ColumnDescription
	err := stmt.DescribeCol(1, &desc)
	if !IsProgrammingError(err) {
		t.Fatalf("Expected programming error, got %v", err)
	}
	if n := h.countCalls("describe"); n != 2 {
		t.Errorf("Expected exactly two describe calls, got %d", n)
	}
}

func TestDescribeColDriverError(t *testing.T) {
	h := newFakeHandle()
	h.failing["DescribeCol"] = Error
	h.diagnostic = &Diagnostic{State: "07009", Message: "invalid descriptor index"}
	stmt := NewStatement(h)

	var desc ColumnDescription
	err := stmt.DescribeCol(9, &desc)
	if !IsDriverError(err) {
		t.Fatalf("Expected driver error, got %v", err)
	}
	if n := h.countCalls("describe"); n != 1 {
		t.Errorf("Failed call was retried: %d calls", n)
	}
}

func TestColumnNames(t *testing.T) {
	h := newFakeHandle()
	h.numCols = 3
	h.names[1] = "id"
	h.names[2] = strings.Repeat("n", 45)
	h.names[3] = "created_at"
	stmt := NewStatement(h)

	names, err := stmt.ColumnNames()
	if err != nil {
		t.Fatalf("ColumnNames returned error: %v", err)
	}
	want := []string{"id", strings.Repeat("n", 45), "created_at"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, names)
	}
}

func TestIsUnsignedColumn(t *testing.T) {
	tests := []struct {
		value    int64
		expected bool
		wantErr  bool
	}{
		{0, false, false},
		{1, true, false},
		{2, false, true},
		{-1, false, true},
	}

	for _, tt := range tests {
		h := newFakeHandle()
		h.numeric[DescUnsigned] = tt.value
		got, err := NewStatement(h).IsUnsignedColumn(1)
		if tt.wantErr {
			if !IsProgrammingError(err) {
				t.Errorf("Value %d: expected programming error, got %v", tt.value, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Value %d: unexpected error %v", tt.value, err)
		}
		if got != tt.expected {
			t.Errorf("Value %d: expected %v, got %v", tt.value, tt.expected, got)
		}
	}
}

func TestNumericColAttributes(t *testing.T) {
	h := newFakeHandle()
	h.numCols = 1
	h.numeric[DescDisplaySize] = 20
	h.numeric[DescOctetLength] = 8
	h.numeric[DescPrecision] = 19
	h.numeric[DescScale] = 0
	h.numeric[DescType] = int64(TypeBigInt)
	h.numeric[DescConciseType] = int64(TypeBigInt)
	query := "SELECT id FROM t"

	cursor, err := ExecuteWithParameters(acquireOf(NewStatement(h)), &query, NoParams())
	if err != nil {
		t.Fatalf("ExecuteWithParameters returned error: %v", err)
	}
	defer cursor.Close()

	if v, _ := cursor.ColDisplaySize(1); v != 20 {
		t.Errorf("Expected display size 20, got %d", v)
	}
	if v, _ := cursor.ColOctetLength(1); v != 8 {
		t.Errorf("Expected octet length 8, got %d", v)
	}
	if v, _ := cursor.ColPrecision(1); v != 19 {
		t.Errorf("Expected precision 19, got %d", v)
	}
	if v, _ := cursor.ColScale(1); v != 0 {
		t.Errorf("Expected scale 0, got %d", v)
	}
	if v, _ := cursor.ColType(1); v != TypeBigInt {
		t.Errorf("Expected type BIGINT, got %d", v)
	}
	if v, _ := cursor.ColConciseType(1); v != TypeBigInt {
		t.Errorf("Expected concise type BIGINT, got %d", v)
	}

	h.failing["ColAttributeNumeric"] = Error
	if _, err := cursor.ColDisplaySize(1); !IsDriverError(err) {
		t.Errorf("Expected driver error, got %v", err)
	}
}

func TestColumnNamesNegativeCount(t *testing.T) {
	h := newFakeHandle()
	h.numCols = -1
	stmt := NewStatement(h)

	names, err := stmt.ColumnNames()
	if !IsDriverError(err) {
		t.Fatalf("Expected a driver error, got %v", err)
	}
	if names != nil {
		t.Errorf("Expected no names, got %v", names)
	}
	assertCalls(t, h.calls, "num_result_cols->-1")
}

func TestDescribeParam(t *testing.T) {
	h := newFakeHandle()
	h.params[1] = ParameterDescription{
		DataType:    DataType{SQLType: TypeInteger, ColumnSize: 10},
		Nullability: NullableUnknown,
	}
	prepared, err := Prepare(NewStatement(h), "SELECT * FROM t WHERE id = ?")
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}

	desc, err := prepared.DescribeParam(1)
	if err != nil {
		t.Fatalf("DescribeParam returned error: %v", err)
	}
	if desc.DataType.SQLType != TypeInteger || desc.DataType.ColumnSize != 10 {
		t.Errorf("Unexpected data type %+v", desc.DataType)
	}
	if desc.Nullability != NullableUnknown {
		t.Errorf("Expected unknown nullability, got %s", desc.Nullability)
	}

	if _, err := prepared.DescribeParam(2); !IsDriverError(err) {
		t.Errorf("Expected a driver error for an unknown parameter, got %v", err)
	}
	if _, err := prepared.DescribeParam(0); !IsProgrammingError(err) {
		t.Errorf("Expected a programming error for parameter 0, got %v", err)
	}
	assertCalls(t, h.calls, "prepare", "describe_param(1)", "describe_param(2)")
}
