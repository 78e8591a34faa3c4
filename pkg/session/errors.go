package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ArangoDB error numbers the ORM reacts to
const (
	ErrorNumDocumentNotFound   = 1202
	ErrorNumUniqueConstraint   = 1210
	ErrorNumConflict           = 1200
	ErrorNumCollectionNotFound = 1203
)

// StorageError is the structured error body returned by the database
type StorageError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	ErrorNum   int    `json:"errorNum"`
	Message    string `json:"errorMessage"`
	Body       []byte `json:"-"`
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("arangodb: %s (code %d, errorNum %d)", e.Message, e.Code, e.ErrorNum)
}

// TransportError is a failed response whose body is not a storage error
type TransportError struct {
	StatusCode int
	Method     string
	Path       string
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// parseStorageError decodes an error body, returning nil when it does not
// carry an errorNum or errorMessage.
func parseStorageError(status int, body []byte) *StorageError {
	if len(body) == 0 {
		return nil
	}
	var se StorageError
	if err := json.Unmarshal(body, &se); err != nil {
		return nil
	}
	if se.ErrorNum == 0 && se.Message == "" {
		return nil
	}
	se.StatusCode = status
	if se.Code == 0 {
		se.Code = status
	}
	se.Body = body
	return &se
}

// Unwrap returns the most specific error available: a structured storage
// error when the response body carries one, else the response, else err.
func Unwrap(err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return se
	}
	var te *TransportError
	if errors.As(err, &te) {
		if parsed := parseStorageError(te.StatusCode, te.Body); parsed != nil {
			return parsed
		}
		return te
	}
	return err
}

// IsNotFound reports whether err is a missing document or collection.
func IsNotFound(err error) bool {
	var se *StorageError
	if errors.As(Unwrap(err), &se) {
		return se.ErrorNum == ErrorNumDocumentNotFound || se.ErrorNum == ErrorNumCollectionNotFound ||
			se.StatusCode == http.StatusNotFound
	}
	return false
}

// IsConflict reports whether err is a revision or unique constraint conflict.
func IsConflict(err error) bool {
	var se *StorageError
	if errors.As(Unwrap(err), &se) {
		return se.ErrorNum == ErrorNumConflict || se.ErrorNum == ErrorNumUniqueConstraint ||
			se.StatusCode == http.StatusConflict || se.StatusCode == http.StatusPreconditionFailed
	}
	return false
}
