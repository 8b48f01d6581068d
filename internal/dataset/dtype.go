package dataset

import (
	"fmt"
	"math"
)

// Dtype identifies the value type of a column.
type Dtype string

const (
	Float64 Dtype = "float64"
	Int64   Dtype = "int64"
	Bool    Dtype = "bool"
	String  Dtype = "string"
)

// valid reports whether the dtype is one of the supported values.
func (d Dtype) valid() bool {
	switch d {
	case Float64, Int64, Bool, String:
		return true
	}
	return false
}

// defaultMissing returns the missing-value sentinel used when a column
// definition does not provide one.
func (d Dtype) defaultMissing() any {
	switch d {
	case Float64:
		return math.NaN()
	case Int64:
		return int64(0)
	case Bool:
		return false
	case String:
		return ""
	}
	panic(fmt.Sprintf("dataset: no default missing value for dtype %q", d))
}

// checkMissing validates that a missing-value sentinel matches the dtype.
func (d Dtype) checkMissing(v any) error {
	ok := false
	switch d {
	case Float64:
		_, ok = v.(float64)
	case Int64:
		_, ok = v.(int64)
	case Bool:
		_, ok = v.(bool)
	case String:
		_, ok = v.(string)
	}
	if !ok {
		return fmt.Errorf("missing value %v (%T) does not match dtype %s", v, v, d)
	}
	return nil
}
