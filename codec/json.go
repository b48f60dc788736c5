package codec

import gojson "github.com/goccy/go-json"

// JSON is a codec for arbitrary structured values backed by github.com/goccy/go-json.
type JSON[V any] struct{}

// Tag returns TagJSON.
func (JSON[V]) Tag() uint8 { return TagJSON }

// Name returns the unique name of the codec ("json").
func (JSON[V]) Name() string { return "json" }

// Append encodes the value to JSON and appends it to dst.
func (JSON[V]) Append(dst []byte, v V) ([]byte, error) {
	b, err := gojson.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}

// Decode decodes a JSON document into a new V.
func (JSON[V]) Decode(data []byte) (V, error) {
	var v V
	err := gojson.Unmarshal(data, &v)
	return v, err
}
