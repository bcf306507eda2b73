package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budget/internal/core"
)

const maxBodyBytes = 1 << 20

var errBadID = errors.New("invalid id")

// decodeBody decodes a JSON request body into dst, rejecting unknown
// fields and oversized payloads.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathID extracts the numeric {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter. A missing
// parameter yields the zero date.
func queryDate(r *http.Request, name string) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

// queryYearMonth parses optional year and month parameters, defaulting
// to the current calendar month.
func queryYearMonth(r *http.Request) (year, month int, err error) {
	now := time.Now()
	year, month = now.Year(), int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil {
			return 0, 0, errors.New("invalid year")
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		month, err = strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return 0, 0, errors.New("invalid month")
		}
	}
	return year, month, nil
}

func todayDate() core.Date {
	return core.DateOf(time.Now())
}

// sanitize trims whitespace and strips control characters from free-text
// input fields.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
