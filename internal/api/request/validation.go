package request

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// maxBodyBytes bounds admin request bodies; every payload is a few fields.
const maxBodyBytes = 64 << 10

var validate = validator.New()

var (
	ErrInvalidJSON = errors.New("invalid JSON")
	ErrValidation  = errors.New("validation error")
)

// Decode reads a JSON body into v and validates it. An empty body decodes as
// {} so callers get the zero value.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return validateStruct(v)
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if len(data) > maxBodyBytes {
		return fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidJSON, maxBodyBytes)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
	}
	return validateStruct(v)
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func RequireID(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("missing required ID")
	}
	return s, nil
}
