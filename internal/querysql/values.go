package querysql

import "github.com/roach88/fieldsync/internal/value"

// Values is an ordered column to value mapping. INSERT column lists and
// UPDATE SET lists follow insertion order.
type Values struct {
	keys []string
	vals map[string]value.Value
}

// NewValues builds Values from pairs, in order.
func NewValues(pairs ...value.Pair) *Values {
	v := &Values{vals: make(map[string]value.Value, len(pairs))}
	for _, p := range pairs {
		v.Put(p.Key, p.Value)
	}
	return v
}

// Put sets column to val. Re-putting a column keeps its original position.
func (v *Values) Put(column string, val value.Value) *Values {
	if v.vals == nil {
		v.vals = make(map[string]value.Value)
	}
	if _, ok := v.vals[column]; !ok {
		v.keys = append(v.keys, column)
	}
	if val == nil {
		val = value.Null{}
	}
	v.vals[column] = val
	return v
}

// Get returns the value for column.
func (v *Values) Get(column string) (value.Value, bool) {
	if v == nil {
		return nil, false
	}
	val, ok := v.vals[column]
	return val, ok
}

// Keys returns the columns in insertion order.
func (v *Values) Keys() []string {
	if v == nil {
		return nil
	}
	return append([]string(nil), v.keys...)
}

// Len returns the number of columns.
func (v *Values) Len() int {
	if v == nil {
		return 0
	}
	return len(v.keys)
}
