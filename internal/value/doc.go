// Package value defines the data model for object fields.
//
// Value is a sealed interface; a type switch over Null, String, Int, Float,
// Bool, Array, Object and Pointer is exhaustive. Pointer is a reference to
// another stored object and is what relation operations carry.
//
// # Canonical form
//
// Marshal emits canonical JSON: keys in UTF-16 order, NFC-normalised strings,
// no HTML escaping, integral floats printed as integers. The canonical text is
// also the identity key (Key) used for set semantics in the operation algebra,
// so two values are "equal" exactly when their canonical bytes are.
package value
