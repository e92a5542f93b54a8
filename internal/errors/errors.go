// Package errors provides the structured error type shared by every
// subsystem. Every error that crosses a component boundary is tagged with a
// Band (Recoverable, Degraded, or Fatal) so the pipeline and the RPC surface
// can decide, without inspecting message text, whether to log-and-continue,
// flip into keyword-only mode, or stop the process.
package errors

import "fmt"

// Band classifies how the caller must react to an error.
type Band string

const (
	// Recoverable errors are logged and counted; the current file or
	// operation is skipped and processing continues.
	Recoverable Band = "recoverable"
	// Degraded errors mean a dependent subsystem (embedder, vector index)
	// is unavailable; the engine falls back to keyword-only search until a
	// health probe confirms recovery.
	Degraded Band = "degraded"
	// Fatal errors mean the on-disk state can no longer be trusted; the
	// process must stop with a non-zero exit code.
	Fatal Band = "fatal"
)

// Code is a stable machine-readable error identifier.
type Code string

const (
	CodeParseError         Code = "parse_error"
	CodeEmbedError         Code = "embed_error"
	CodeNotFound           Code = "not_found"
	CodeModelUnavailable   Code = "model_unavailable"
	CodeVectorUnavailable  Code = "vector_unavailable"
	CodeDatabaseCorruption Code = "database_corruption"
	CodeInsufficientDisk   Code = "insufficient_disk"
	CodeConfigError        Code = "config_error"
	CodeIO                 Code = "io_error"
	CodeSerialization      Code = "serialization_error"
	CodeInternal           Code = "internal_error"
)

var bandByCode = map[Code]Band{
	CodeParseError:         Recoverable,
	CodeEmbedError:         Recoverable,
	CodeNotFound:           Recoverable,
	CodeModelUnavailable:   Degraded,
	CodeVectorUnavailable:  Degraded,
	CodeDatabaseCorruption: Fatal,
	CodeInsufficientDisk:   Fatal,
	CodeConfigError:        Fatal,
	CodeIO:                 Recoverable,
	CodeSerialization:      Recoverable,
	CodeInternal:           Fatal,
}

var retryableByCode = map[Code]bool{
	CodeParseError:        false,
	CodeEmbedError:        true,
	CodeNotFound:          false,
	CodeModelUnavailable:  true,
	CodeVectorUnavailable: true,
	CodeIO:                true,
	CodeSerialization:     false,
}

// OmniError is the structured error type threaded through the engine. It
// mirrors the three-band model: Band decides control flow, Code identifies
// the failure for metrics/logging, and Details carries structured context
// instead of being folded into the message string.
type OmniError struct {
	Code      Code
	Band      Band
	Message   string
	Details   map[string]string
	Cause     error
	Retryable bool
}

func (e *OmniError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *OmniError) Unwrap() error {
	return e.Cause
}

// Is enables errors.Is(err, target) to match by Code, the way the rest of
// the corpus matches its own tagged error types.
func (e *OmniError) Is(target error) bool {
	t, ok := target.(*OmniError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a key-value detail and returns the error for chaining.
func (e *OmniError) WithDetail(key, value string) *OmniError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New builds an OmniError, deriving Band and Retryable from Code.
func New(code Code, message string, cause error) *OmniError {
	return &OmniError{
		Code:      code,
		Band:      bandByCode[code],
		Message:   message,
		Cause:     cause,
		Retryable: retryableByCode[code],
	}
}

// Wrap tags an existing error with a code, or returns nil if err is nil.
func Wrap(code Code, err error) *OmniError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ParseError reports a structural extraction failure for a single file.
// Recoverable: the file is skipped and indexing continues.
func ParseError(path string, cause error) *OmniError {
	return New(CodeParseError, "failed to parse file", cause).WithDetail("path", path)
}

// EmbedError reports a failed embedding call for one chunk.
func EmbedError(chunkID uint64, cause error) *OmniError {
	return New(CodeEmbedError, "failed to embed chunk", cause).
		WithDetail("chunk_id", fmt.Sprintf("%d", chunkID))
}

// NotFound reports a missing entity (symbol, file, chunk).
func NotFound(entity string) *OmniError {
	return New(CodeNotFound, "entity not found", nil).WithDetail("entity", entity)
}

// ModelUnavailable reports the embedding model is unreachable or unhealthy.
// Degraded: the engine falls back to keyword-only search.
func ModelUnavailable(reason string) *OmniError {
	return New(CodeModelUnavailable, "embedding model unavailable", nil).WithDetail("reason", reason)
}

// VectorUnavailable reports the ANN index could not be queried or loaded.
func VectorUnavailable(reason string) *OmniError {
	return New(CodeVectorUnavailable, "vector index unavailable", nil).WithDetail("reason", reason)
}

// DatabaseCorruption reports on-disk metadata that failed integrity checks.
// Fatal: the process must stop rather than operate on untrusted state.
func DatabaseCorruption(details string) *OmniError {
	return New(CodeDatabaseCorruption, "metadata store corruption detected", nil).
		WithDetail("details", details)
}

// InsufficientDisk reports that free space fell below what indexing needs.
func InsufficientDisk(availableMB, requiredMB int64) *OmniError {
	return New(CodeInsufficientDisk, "insufficient disk space", nil).
		WithDetail("available_mb", fmt.Sprintf("%d", availableMB)).
		WithDetail("required_mb", fmt.Sprintf("%d", requiredMB))
}

// ConfigError reports a malformed or missing configuration value.
func ConfigError(details string, cause error) *OmniError {
	return New(CodeConfigError, details, cause)
}

// GetCode extracts the Code from err, or CodeInternal if err is not an
// *OmniError.
func GetCode(err error) Code {
	if oe, ok := err.(*OmniError); ok {
		return oe.Code
	}
	return CodeInternal
}

// GetBand extracts the Band from err, or Fatal if err is not an *OmniError
// (an untagged error is treated conservatively).
func GetBand(err error) Band {
	if oe, ok := err.(*OmniError); ok {
		return oe.Band
	}
	return Fatal
}

// IsRecoverable reports whether err should be logged and skipped.
func IsRecoverable(err error) bool {
	return GetBand(err) == Recoverable
}

// IsDegraded reports whether err should flip the engine into keyword-only mode.
func IsDegraded(err error) bool {
	return GetBand(err) == Degraded
}

// IsFatal reports whether err should stop the process.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return GetBand(err) == Fatal
}

// IsRetryable reports whether the operation that produced err may be retried.
func IsRetryable(err error) bool {
	if oe, ok := err.(*OmniError); ok {
		return oe.Retryable
	}
	return false
}
