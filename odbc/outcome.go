package odbc

import "fmt"

// Kind classifies the outcome of a driver call.
type Kind uint8

const (
	KindSuccess Kind = iota
	KindError
	KindNoData
	KindNeedData
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindNoData:
		return "no data"
	case KindNeedData:
		return "need data"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Outcome is the four-way result of a driver call. Err is set only for
// KindError. Value is meaningful for KindSuccess and, where an operation
// documents it, for KindNeedData.
type Outcome[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

func Succeeded[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: KindSuccess, Value: v}
}

func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: KindError, Err: err}
}

func NoDataOutcome[T any]() Outcome[T] {
	return Outcome[T]{Kind: KindNoData}
}

func NeedDataOutcome[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: KindNeedData, Value: v}
}

// Into converts an outcome of a call that may only succeed or fail.
func (o Outcome[T]) Into(function string) (T, error) {
	switch o.Kind {
	case KindSuccess:
		return o.Value, nil
	case KindError:
		var zero T
		return zero, o.Err
	}
	var zero T
	return zero, &DriverError{
		Function: function,
		Return:   o.returnCode(),
		Diagnostic: &Diagnostic{
			State:   "HY000",
			Message: fmt.Sprintf("unexpected %s from %s", o.Kind, function),
		},
	}
}

func (o Outcome[T]) returnCode() ReturnCode {
	switch o.Kind {
	case KindNoData:
		return NoData
	case KindNeedData:
		return NeedData
	case KindError:
		return Error
	}
	return Success
}

// Classify turns a raw return code into an outcome. diag is consulted only on
// failure.
func Classify(function string, rc ReturnCode, diag func() *Diagnostic) Outcome[struct{}] {
	switch rc {
	case Success, SuccessWithInfo:
		return Succeeded(struct{}{})
	case NoData:
		return NoDataOutcome[struct{}]()
	case NeedData:
		return NeedDataOutcome(struct{}{})
	}
	err := &DriverError{Function: function, Return: rc}
	if diag != nil {
		err.Diagnostic = diag()
	}
	return Failed[struct{}](err)
}

// withValue carries the classification of o over to a typed outcome.
func withValue[T any](o Outcome[struct{}], v T) Outcome[T] {
	return Outcome[T]{Kind: o.Kind, Value: v, Err: o.Err}
}
