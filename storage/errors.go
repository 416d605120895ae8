// Package storage provides the object-storage collaborator that holds
// attachment bytes, plus storage error classification.
//
// Sentinel errors let callers use errors.Is for typed assertions rather
// than string matching.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Sentinel errors for storage failure classification.
var (
	// ErrNotFound indicates the object does not exist (ENOENT, 404, NoSuchKey).
	ErrNotFound = errors.New("not found")

	// ErrTooLarge indicates the object exceeds the configured download limit.
	ErrTooLarge = errors.New("object too large")

	// ErrPermissionDenied indicates a local permission failure (EACCES).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAccessDenied indicates authorization failure (valid creds but no permission).
	ErrAccessDenied = errors.New("access denied")

	// ErrAuth indicates authentication failure (no credentials, expired token).
	ErrAuth = errors.New("authentication failed")

	// ErrDiskFull indicates storage is out of space (ENOSPC).
	ErrDiskFull = errors.New("no space left on device")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrThrottled indicates rate limiting (429, SlowDown).
	ErrThrottled = errors.New("rate limited")

	// ErrNetwork indicates a network-level failure (connection refused, DNS).
	ErrNetwork = errors.New("network error")

	// errUnclassified is the Kind of errors matching no other class.
	errUnclassified = errors.New("storage error")
)

// StorageError wraps an underlying error with storage classification.
// The original error stays in the chain for errors.As.
type StorageError struct {
	// Kind is the sentinel error for classification (e.g., ErrNotFound).
	Kind error
	// Op is the operation that failed (e.g., "download", "init").
	Op string
	// Ref is the object reference involved, if any.
	Ref string
	// Err is the underlying error.
	Err error
}

func (e *StorageError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Ref, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewStorageError creates a classified storage error.
func NewStorageError(kind error, op, ref string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Ref: ref, Err: err}
}

// WrapDownloadError classifies and wraps a download error.
// Returns nil if err is nil.
func WrapDownloadError(err error, ref string) error {
	if err == nil {
		return nil
	}
	return NewStorageError(classifyError(err), "download", ref, err)
}

// WrapError classifies and wraps err for an arbitrary operation.
// Returns nil if err is nil.
func WrapError(err error, op, ref string) error {
	if err == nil {
		return nil
	}
	return NewStorageError(classifyError(err), op, ref, err)
}

// WrapInitError classifies and wraps a backend initialization error.
// Returns nil if err is nil.
func WrapInitError(err error, backend string) error {
	if err == nil {
		return nil
	}
	return NewStorageError(classifyError(err), "init", backend, err)
}

// classifyError determines the sentinel for err, from typed errors first and
// message patterns second.
func classifyError(err error) error {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) || errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		return ErrPermissionDenied
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, ErrTooLarge) {
		return ErrTooLarge
	}

	msg := err.Error()
	switch {
	case containsAny(msg, "AccessDenied", "Forbidden", "403"):
		return ErrAccessDenied
	case containsAny(msg, "permission denied", "EACCES"):
		return ErrPermissionDenied
	case containsAny(msg, "no such file", "does not exist", "not found", "ENOENT", "404", "NoSuchKey"):
		return ErrNotFound
	case containsAny(msg, "no space left", "disk full", "ENOSPC", "quota exceeded"):
		return ErrDiskFull
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return ErrTimeout
	case containsAny(msg, "SlowDown", "rate exceeded", "throttl", "429", "TooManyRequests"):
		return ErrThrottled
	case containsAny(msg, "NoCredentialProviders", "credentials", "InvalidAccessKeyId",
		"SignatureDoesNotMatch", "ExpiredToken", "401", "Unauthorized"):
		return ErrAuth
	case containsAny(msg, "connection refused", "no route to host", "network unreachable",
		"DNS", "dial tcp"):
		return ErrNetwork
	default:
		return errUnclassified
	}
}

// containsAny checks if s contains any of the substrings, ignoring case.
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
