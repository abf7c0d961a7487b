package value

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the data an object field can hold.
// Only Null, String, Int, Float, Bool, Array, Object and Pointer implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an explicit JSON null.
type Null struct{}

func (Null) value() {}

// String is a string field value.
type String string

func (String) value() {}

// Int is an integral number. Kept apart from Float so counters stay exact.
type Int int64

func (Int) value() {}

// Float is a non-integral number.
type Float float64

func (Float) value() {}

// Bool is a boolean field value.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of values.
type Array []Value

func (Array) value() {}

// Object is a map of field names to values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Pointer references another stored object by class and id.
// Encoded on the wire as {"__type":"Pointer","className":..,"objectId":..}.
type Pointer struct {
	ClassName string
	ObjectID  string
}

func (Pointer) value() {}

// Pair is a key-value pair for ordered Object construction in tests and literals.
type Pair struct {
	Key   string
	Value Value
}

// O is a shorthand for Pair.
// Example: NewObject(O("name", String("cart")), O("count", Int(5)))
func O(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject builds an Object from pairs.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// NewArray builds an Array from values.
func NewArray(vals ...Value) Array {
	return Array(vals)
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for astral characters.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Clone returns a shallow copy of the object.
func (obj Object) Clone() Object {
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// Kind names the variant of v for error messages.
func Kind(v Value) string {
	switch v.(type) {
	case nil:
		return "absent"
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case Object:
		return "object"
	case Pointer:
		return "pointer"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsNumber reports whether v is an Int or a Float.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	}
	return false
}

// AddNumbers sums two numeric values. Int+Int stays Int unless it overflows,
// in which case the result degrades to Float. A sum that is not finite is an
// error: it has no JSON form.
func AddNumbers(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			sum := x + y
			if (y > 0 && sum < x) || (y < 0 && sum > x) {
				return finiteSum(float64(x) + float64(y))
			}
			return sum, nil
		case Float:
			return finiteSum(float64(x) + float64(y))
		}
	case Float:
		switch y := b.(type) {
		case Int:
			return finiteSum(float64(x) + float64(y))
		case Float:
			return finiteSum(float64(x + y))
		}
	}
	return nil, fmt.Errorf("cannot add %s and %s", Kind(a), Kind(b))
}

func finiteSum(f float64) (Value, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("sum overflows to %v", f)
	}
	return Float(f), nil
}

// FromAny converts a decoded Go value (from encoding/json, yaml.v3 or CUE) into a Value.
// Maps carrying {"__type":"Pointer"} become Pointer.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val)
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	case json.Number:
		return fromNumber(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		return fromMap(val)
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, elem := range val {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			m[ks] = elem
		}
		return fromMap(m)
	default:
		// Last resort for decoder-specific number types: round-trip through JSON.
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("unsupported type: %T", v)
		}
		return Parse(data)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Float(float64(u)), nil
	}
	return Int(int64(u)), nil
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	return Float(f), nil
}

func fromNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", n.String(), err)
	}
	return fromFloat(f)
}

func fromMap(m map[string]any) (Value, error) {
	if t, ok := m["__type"].(string); ok && t == "Pointer" {
		class, _ := m["className"].(string)
		id, _ := m["objectId"].(string)
		if class == "" || id == "" {
			return nil, fmt.Errorf("pointer requires className and objectId")
		}
		return Pointer{ClassName: class, ObjectID: id}, nil
	}
	obj := make(Object, len(m))
	for k, elem := range m {
		e, err := FromAny(elem)
		if err != nil {
			return nil, fmt.Errorf("[%q]: %w", k, err)
		}
		obj[k] = e
	}
	return obj, nil
}

// ToAny converts a Value into plain Go data (the inverse of FromAny).
// Pointers become their wire map.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = ToAny(e)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = ToAny(e)
		}
		return out
	case Pointer:
		return map[string]any{
			"__type":    "Pointer",
			"className": val.ClassName,
			"objectId":  val.ObjectID,
		}
	default:
		return nil
	}
}

// ToParam converts a Value into a database/sql parameter.
// Scalars map to their Go type; arrays, objects and pointers are stored as canonical JSON text.
func ToParam(v Value) (any, error) {
	switch val := v.(type) {
	case nil, Null:
		return nil, nil
	case String:
		return string(val), nil
	case Int:
		return int64(val), nil
	case Float:
		return float64(val), nil
	case Bool:
		return bool(val), nil
	case Array, Object, Pointer:
		data, err := Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
