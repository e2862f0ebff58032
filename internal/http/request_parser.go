// Package http provides the JSON API and the server-rendered tree page.
//
// This file implements utilities for parsing and validating request data:
// path ids, statistics mode query flags and JSON or form bodies.

package http

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"bommel/internal/core"
)

// maxBodyBytes caps mutation bodies; they carry a label at most.
const maxBodyBytes = 64 << 10

var (
	errInvalidID   = errors.New("must be a positive integer")
	errInvalidFlag = errors.New("must be true or false")
	errBadBody     = errors.New("malformed request body")
)

// ParseID reads the {id} path value.
func ParseID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Err: errInvalidID}
	}
	return id, nil
}

// ParseMode overlays includeDrafts/aggregate query flags on def.
func ParseMode(query url.Values, def core.StatisticsMode) (core.StatisticsMode, error) {
	mode := def
	for key, dst := range map[string]*bool{
		"includeDrafts": &mode.IncludeDrafts,
		"aggregate":     &mode.Aggregate,
	} {
		v := strings.TrimSpace(query.Get(key))
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def, &core.ValidationError{Field: key, Err: errInvalidFlag}
		}
		*dst = b
	}
	return mode, nil
}

// RequestBodyParser reads a body once and serves values from either JSON
// or form encoding.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return &core.ValidationError{Err: errBadBody}
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = &core.ValidationError{Err: errBadBody}
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = &core.ValidationError{Err: errBadBody}
	}
	return p.err
}

// Has reports whether key was sent at all, even empty.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// Get returns a sanitized string value.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetID returns key as a node id; 0 (the virtual root) is allowed.
func (p *RequestBodyParser) GetID(key string) (int64, error) {
	raw := p.Get(key)
	if raw == "" {
		return 0, &core.ValidationError{Field: key, Err: errors.New("is required")}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, &core.ValidationError{Field: key, Err: errInvalidID}
	}
	return id, nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}
