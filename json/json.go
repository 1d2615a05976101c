package json

import (
	"io"
	"reflect"

	"github.com/creasty/defaults"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// applyDefaults fills `default` tags when v points at a struct; any other
// value passes through untouched.
func applyDefaults(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	return defaults.Set(v)
}

type Encoder struct {
	*jsoniter.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		Encoder: json.NewEncoder(w),
	}
}

// Encode applies defaults before encoding.
func (e *Encoder) Encode(v any) error {
	if err := applyDefaults(v); err != nil {
		return err
	}
	return e.Encoder.Encode(v)
}

func Marshal(v any) ([]byte, error) {
	if err := applyDefaults(v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	if err := applyDefaults(v); err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	if err := applyDefaults(v); err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
