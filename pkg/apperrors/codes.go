package apperrors

// ErrorCode is the machine-readable error code returned to API clients.
type ErrorCode string

const (
	// System
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Generic business logic
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Money movement
	CodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
	CodeGatewayError        ErrorCode = "GATEWAY_ERROR"
	CodePersistenceError    ErrorCode = "PERSISTENCE_ERROR"
	CodePaymentTimeout      ErrorCode = "PAYMENT_TIMEOUT"
	CodeWithdrawalRejected  ErrorCode = "WITHDRAWAL_REJECTED"

	// One-time codes
	CodeOTPNoSession ErrorCode = "OTP_NO_SESSION"
	CodeOTPExpired   ErrorCode = "OTP_EXPIRED"
	CodeOTPExhausted ErrorCode = "OTP_EXHAUSTED"
	CodeOTPIncorrect ErrorCode = "OTP_INCORRECT"
	CodeOTPDelivery  ErrorCode = "OTP_DELIVERY_FAILED"

	// Auth context
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
)
