package services

import (
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
)

var (
	ErrInvalidPrefix = errors.New(`prefix must be empty or end with "/"`)
	ErrNoContent     = errors.New("no file content received")
)

// ListError is returned by List for any transport, auth or configuration
// failure. Callers treat it as a broken configuration.
type ListError struct {
	Prefix string
	Err    error
}

func (e *ListError) Error() string {
	return "Failed to load files: " + e.Err.Error()
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// OperationError reports a failed upload, download or delete. It is only
// surfaced to the immediate caller.
type OperationError struct {
	Op  string
	Key string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("Failed to %s file %q: %v", e.Op, e.Key, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Notice is the short message shown for a failed operation
func (e *OperationError) Notice() string {
	return "Failed to " + e.Op + " file"
}

// DescribeError renders err for the error banner. S3 error responses get
// their code and request id appended.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()

	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code != "" {
		requestID := resp.RequestID
		if requestID == "" {
			requestID = "N/A"
		}
		msg += fmt.Sprintf("\nS3 Error: %s\nRequest ID: %s", resp.Code, requestID)
	}
	return msg
}
