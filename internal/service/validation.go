package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"task-manager/internal/apperror"
	"task-manager/internal/config"

	"github.com/go-playground/validator/v10"
)

// Patch is a partial update as sent by the client: field name to raw JSON value.
type Patch map[string]json.RawMessage

// checkAllowed adds a violation for every key outside allowed.
func (p Patch) checkAllowed(verr *apperror.ValidationError, allowed ...string) {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		ok := false
		for _, a := range allowed {
			if k == a {
				ok = true
				break
			}
		}
		if !ok {
			verr.Add(k, "is not an allowed field")
		}
	}
}

// decode unmarshals p[field] into dst. Returns false when the field is absent
// or could not be decoded; decode failures are recorded on verr.
func (p Patch) decode(verr *apperror.ValidationError, field string, dst any, kind string) bool {
	raw, ok := p[field]
	if !ok {
		return false
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		verr.Add(field, "must be "+kind)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		verr.Add(field, "must be "+kind)
		return false
	}
	return true
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is invalid"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return "must be a positive number"
	case "nopassword":
		return "cannot contain 'password'"
	default:
		return "failed the " + fe.Tag() + " check"
	}
}

// validateStruct runs struct tag validation and appends every failure to verr.
func validateStruct(verr *apperror.ValidationError, s any) error {
	err := config.Validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), messageFor(fe))
	}
	return nil
}
