// Package codec provides pluggable value (de)serialization for the typed
// cache view.
package codec

// Codec encodes and decodes values of V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
