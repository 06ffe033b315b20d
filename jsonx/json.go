package jsonx

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var jsonx = jsoniter.ConfigCompatibleWithStandardLibrary

// canonical is used wherever the produced bytes are hashed. Map keys are sorted
// and HTML characters are left as-is so the output only depends on the value.
var canonical = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

func Marshal(v interface{}) ([]byte, error) {
	return jsonx.Marshal(v)
}

func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return jsonx.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v interface{}) error {
	return jsonx.Unmarshal(data, v)
}

// MarshalCanonical encodes v with sorted map keys and no HTML escaping.
func MarshalCanonical(v interface{}) ([]byte, error) {
	return canonical.Marshal(v)
}

// UnmarshalNumber decodes data keeping numbers as json.Number so they can be
// re-encoded without float rounding.
func UnmarshalNumber(data []byte, v interface{}) error {
	return canonical.Unmarshal(data, v)
}

func NewDecoder(r io.Reader) *jsoniter.Decoder {
	return jsonx.NewDecoder(r)
}

func NewEncoder(w io.Writer) *jsoniter.Encoder {
	return jsonx.NewEncoder(w)
}
