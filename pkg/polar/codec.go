package polar

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// json is the codec used for every request and response body.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Decode materialises data into a T. Failures are reported as *DeserializationError
// naming target.
func Decode[T any](data []byte, target string) (T, error) {
	var value T

	if len(data) == 0 {
		return value, &DeserializationError{Target: target, Err: ErrEmptyBody}
	}

	err := json.Unmarshal(data, &value)
	if err != nil {
		return value, &DeserializationError{Target: target, Err: err}
	}

	return value, nil
}

// Encode serialises v with the package codec.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	return data, nil
}
