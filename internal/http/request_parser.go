// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// path ids, JSON bodies, optional dates and input sanitization.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"atelier/internal/core"
)

const maxBodyBytes = 1 << 20

var (
	errInvalidID   = errors.New("invalid id")
	errInvalidBody = errors.New("invalid JSON body")
	errInvalidDate = errors.New("date must be YYYY-MM-DD or RFC 3339")
)

// parseID reads a positive integer path parameter.
func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue(name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// amountError names the JSON field holding a rejected money value.
type amountError struct {
	field string
	err   error
}

func (e *amountError) Error() string { return e.field + ": " + e.err.Error() }
func (e *amountError) Unwrap() error { return e.err }

// decodeJSON reads at most maxBodyBytes of JSON into v. Amount errors keep
// core.ErrInvalidAmount in the chain, wrapped in an *amountError naming the
// field, so they are reported as validation failures.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("%w: body too large", errInvalidBody)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return fmt.Errorf("%w: empty body", errInvalidBody)
	}
	if err := json.Unmarshal(body, v); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			field := invalidMoneyField(reflect.TypeOf(v), body, "")
			if field == "" {
				field = "amount"
			}
			return &amountError{field: field, err: err}
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

var moneyType = reflect.TypeOf(core.Money{})

// invalidMoneyField walks raw alongside t and returns the path of the first
// core.Money value that does not decode, e.g. "price" or "projects[1].price".
func invalidMoneyField(t reflect.Type, raw json.RawMessage, path string) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	switch {
	case t == moneyType:
		var m core.Money
		if m.UnmarshalJSON(raw) != nil {
			return path
		}
	case t.Kind() == reflect.Struct:
		var obj map[string]json.RawMessage
		if json.Unmarshal(raw, &obj) != nil {
			return ""
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name, skip := jsonFieldName(f)
			if skip {
				continue
			}
			if f.Anonymous && name == "" {
				if got := invalidMoneyField(f.Type, raw, path); got != "" {
					return got
				}
				continue
			}
			if name == "" {
				name = f.Name
			}
			for key, val := range obj {
				if !strings.EqualFold(key, name) {
					continue
				}
				child := key
				if path != "" {
					child = path + "." + key
				}
				if got := invalidMoneyField(f.Type, val, child); got != "" {
					return got
				}
			}
		}
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) != nil {
			return ""
		}
		for i, item := range items {
			if got := invalidMoneyField(t.Elem(), item, fmt.Sprintf("%s[%d]", path, i)); got != "" {
				return got
			}
		}
	}
	return ""
}

// jsonFieldName returns the name from f's json tag, "" when untagged.
func jsonFieldName(f reflect.StructField) (name string, skip bool) {
	if !f.IsExported() && !f.Anonymous {
		return "", true
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name, _, _ = strings.Cut(tag, ",")
	return name, false
}

// writeDecodeError answers a body that could not be decoded.
func writeDecodeError(w http.ResponseWriter, err error) {
	var ae *amountError
	if errors.As(err, &ae) {
		ValidationFailed(&core.ValidationError{Fields: map[string]string{ae.field: ae.err.Error()}}).Write(w)
		return
	}
	if errors.Is(err, core.ErrInvalidAmount) {
		ValidationFailed(&core.ValidationError{Fields: map[string]string{"amount": err.Error()}}).Write(w)
		return
	}
	BadRequestError(err.Error()).Write(w)
}

// parseDate accepts a calendar date (taken as midnight in loc) or an RFC 3339
// timestamp. An empty string yields nil.
func parseDate(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, errInvalidDate
	}
	return &t, nil
}

// parseDateOrZero is parseDate for fields where a missing date means "today"
// and is filled in by the service.
func parseDateOrZero(s string, loc *time.Location) (time.Time, error) {
	t, err := parseDate(s, loc)
	if err != nil || t == nil {
		return time.Time{}, err
	}
	return *t, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseBoolParam reads a query flag, falling back to def when absent or
// malformed.
func parseBoolParam(v string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// dateFieldError wraps a date parse failure as a single-field validation error.
func dateFieldError(field string, err error) error {
	return &core.ValidationError{Fields: map[string]string{field: err.Error()}}
}
