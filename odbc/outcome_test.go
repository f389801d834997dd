package odbc

import (
	"errors"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	diag := &Diagnostic{State: "HY000", NativeError: 1, Message: "general error"}
	tests := []struct {
		rc       ReturnCode
		expected Kind
	}{
		{Success, KindSuccess},
		{SuccessWithInfo, KindSuccess},
		{NoData, KindNoData},
		{NeedData, KindNeedData},
		{Error, KindError},
		{InvalidHandle, KindError},
		{StillExecuting, KindError},
	}

	for _, tt := range tests {
		o := Classify("SQLExecute", tt.rc, func() *Diagnostic { return diag })
		if o.Kind != tt.expected {
			t.Errorf("%s: expected %s, got %s", tt.rc, tt.expected, o.Kind)
		}
		if tt.expected != KindError {
			if o.Err != nil {
				t.Errorf("%s: unexpected error %v", tt.rc, o.Err)
			}
			continue
		}
		var driverErr *DriverError
		if !errors.As(o.Err, &driverErr) {
			t.Fatalf("%s: expected driver error, got %v", tt.rc, o.Err)
		}
		if driverErr.Function != "SQLExecute" || driverErr.Return != tt.rc || driverErr.Diagnostic != diag {
			t.Errorf("%s: unexpected driver error %+v", tt.rc, driverErr)
		}
	}
}

func TestClassifyWithoutDiagnostics(t *testing.T) {
	o := Classify("SQLPrepare", Error, nil)
	if o.Err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(o.Err.Error(), "no diagnostics available") {
		t.Errorf("Unexpected message %q", o.Err.Error())
	}
}

func TestOutcomeInto(t *testing.T) {
	if v, err := Succeeded(int16(3)).Into("SQLNumResultCols"); err != nil || v != 3 {
		t.Errorf("Expected 3, got %d (%v)", v, err)
	}

	if _, err := Failed[int16](errBoom).Into("SQLNumResultCols"); !errors.Is(err, errBoom) {
		t.Errorf("Expected wrapped failure, got %v", err)
	}

	_, err := NoDataOutcome[struct{}]().Into("SQLFreeStmt")
	var driverErr *DriverError
	if !errors.As(err, &driverErr) {
		t.Fatalf("Expected driver error, got %v", err)
	}
	if driverErr.Function != "SQLFreeStmt" || driverErr.Return != NoData {
		t.Errorf("Unexpected driver error %+v", driverErr)
	}

	_, err = NeedDataOutcome(struct{}{}).Into("SQLPrepare")
	if !IsDriverError(err) {
		t.Errorf("Expected driver error for need data, got %v", err)
	}
}

func TestStatementGuards(t *testing.T) {
	h := newFakeHandle()
	stmt := NewStatement(h)

	if o := stmt.SetParamsetSize(0); !IsProgrammingError(o.Err) {
		t.Errorf("Expected programming error for paramset size 0, got %v", o.Err)
	}
	if o := stmt.BindParameter(&ParameterBinding{Number: 0}); !IsProgrammingError(o.Err) {
		t.Errorf("Expected programming error for parameter 0, got %v", o.Err)
	}
	if o := stmt.PutBatch(nil); !IsProgrammingError(o.Err) {
		t.Errorf("Expected programming error for an empty batch, got %v", o.Err)
	}
	if len(h.calls) != 0 {
		t.Errorf("Guards reached the driver: %v", h.calls)
	}

	stmt.state = HasResultSet
	if o := stmt.BindParameter(&ParameterBinding{Number: 1}); !IsProgrammingError(o.Err) {
		t.Errorf("Expected programming error binding with an open result set, got %v", o.Err)
	}
}

func TestStatementParamData(t *testing.T) {
	h := newFakeHandle()
	h.tokens = []Token{4}
	stmt := NewStatement(h)

	o := stmt.ParamData()
	if o.Kind != KindNeedData || o.Value != 4 {
		t.Errorf("Expected need data with token 4, got %s %d", o.Kind, o.Value)
	}
	if o := stmt.ParamData(); o.Kind != KindSuccess {
		t.Errorf("Expected success once no parameter is left, got %s", o.Kind)
	}

	h.paramEnd = NoData
	if o := stmt.ParamData(); o.Kind != KindSuccess {
		t.Errorf("Expected no data to mean none left, got %s", o.Kind)
	}
}

func TestStatementFreeOnce(t *testing.T) {
	h := newFakeHandle()
	stmt := NewTransientStatement(h)
	if !stmt.Transient() {
		t.Error("Expected a transient statement")
	}
	stmt.Free()
	stmt.Free()
	if h.freed != 1 {
		t.Errorf("Expected one free, got %d", h.freed)
	}
}
