package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidRequest marks malformed invocation input.
var ErrInvalidRequest = errors.New("invalid request")

// Request is the invocation input: the target file and its replacement content.
type Request struct {
	FilePath string `json:"file_path"`
	NewCode  string `json:"new_code"`
}

// ParseRequest decodes a single JSON request object from r.
// Both fields must be present; new_code may be empty, file_path may not.
// Anything but whitespace after the object is rejected.
func ParseRequest(r io.Reader) (Request, error) {
	var raw struct {
		FilePath *string `json:"file_path"`
		NewCode  *string `json:"new_code"`
	}

	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return Request{}, fmt.Errorf("%w: unexpected data after request object", ErrInvalidRequest)
	}
	if raw.FilePath == nil {
		return Request{}, fmt.Errorf("%w: missing field file_path", ErrInvalidRequest)
	}
	if raw.NewCode == nil {
		return Request{}, fmt.Errorf("%w: missing field new_code", ErrInvalidRequest)
	}

	req := Request{FilePath: *raw.FilePath, NewCode: *raw.NewCode}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks the fields that do not depend on the filesystem.
func (r Request) Validate() error {
	if strings.TrimSpace(r.FilePath) == "" {
		return fmt.Errorf("%w: file_path is empty", ErrInvalidRequest)
	}
	if strings.ContainsRune(r.FilePath, 0) {
		return fmt.Errorf("%w: file_path contains a NUL byte", ErrInvalidRequest)
	}
	return nil
}
