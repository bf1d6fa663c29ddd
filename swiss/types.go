package swiss

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/hupe1980/swissalloc/alloc"
)

// ErrUnsupportedType is returned when K or V cannot live in allocator memory.
var ErrUnsupportedType = errors.New("swiss: unsupported type")

// ErrNilAllocator is returned when a table is created without an allocator.
var ErrNilAllocator = errors.New("swiss: nil allocator")

// checkTypes verifies that entries of K and V can be stored as raw bytes.
func checkTypes[K comparable, V any]() error {
	kt := reflect.TypeFor[K]()
	vt := reflect.TypeFor[V]()

	if kt.Size() == 0 {
		return fmt.Errorf("%w: key type %s has zero size", ErrUnsupportedType, kt)
	}
	if err := checkPointerFree(kt); err != nil {
		return fmt.Errorf("%w: key type %s: %w", ErrUnsupportedType, kt, err)
	}
	if err := checkPointerFree(vt); err != nil {
		return fmt.Errorf("%w: value type %s: %w", ErrUnsupportedType, vt, err)
	}
	if err := checkHashable(kt); err != nil {
		return fmt.Errorf("%w: key type %s: %w", ErrUnsupportedType, kt, err)
	}
	if a := unsafe.Alignof(entry[K, V]{}); a > alloc.DefaultAlignment {
		return fmt.Errorf("%w: entry alignment %d exceeds %d", ErrUnsupportedType, a, alloc.DefaultAlignment)
	}
	return nil
}

func checkPointerFree(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		return checkPointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := checkPointerFree(t.Field(i).Type); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%s holds pointers", t.Kind())
	}
}

// checkHashable rejects keys whose byte image does not follow ==:
// padding bytes are unspecified and floats compare +0 == -0 and NaN != NaN.
func checkHashable(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return fmt.Errorf("floating-point %s compares differently from its bytes", t.Kind())
	case reflect.Array:
		return checkHashable(t.Elem())
	case reflect.Struct:
		var sum uintptr
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if err := checkHashable(f.Type); err != nil {
				return err
			}
			sum += f.Type.Size()
		}
		if sum != t.Size() {
			return fmt.Errorf("struct %s has %d padding bytes", t, t.Size()-sum)
		}
		return nil
	default:
		return nil
	}
}
