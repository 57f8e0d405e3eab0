package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable).
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Resource errors.
const (
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Validation errors.
const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Media errors.
const (
	// ErrCodeMediaInvalid means ffmpeg/ffprobe could not read or produce media.
	ErrCodeMediaInvalid ErrorCode = "MEDIA_INVALID"
	// ErrCodeMediaTooLarge means the extracted audio exceeds the upload limit of the transcription backend.
	ErrCodeMediaTooLarge ErrorCode = "MEDIA_TOO_LARGE"
	// ErrCodeTranscriptionFailed means every transcription attempt failed.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
)

// Internal errors.
const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError   ErrorCode = "DATABASE_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeDatabaseError:      true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
