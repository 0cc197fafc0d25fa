package eval

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

// ErrNotIterable is returned by Sequence for values a loop cannot range over
var ErrNotIterable = errors.New("value is not iterable")

// Format converts an evaluated value to the text inserted into the output.
// nil formats as the empty string.
func Format(value any) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', 15, 64)
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Truthy reports whether a condition value selects its branch. Booleans are
// taken as is; nil, zero numbers, empty strings and empty collections are
// false; everything else is true.
func Truthy(value any) bool {
	if value == nil {
		return false
	}

	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case float64:
		return v != 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

// Sequence returns the elements a loop ranges over. Slices and arrays yield
// their elements in order, a non-negative integer n yields 0..n-1 and nil
// yields nothing.
func Sequence(value any) ([]any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n < 0 {
			return nil, fmt.Errorf("%w: negative count %d", ErrNotIterable, n)
		}
		items := make([]any, n)
		for i := range items {
			items[i] = i
		}
		return items, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
	}

	return nil, fmt.Errorf("%w: %T", ErrNotIterable, value)
}
