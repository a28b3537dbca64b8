package apperrors

import (
	"fmt"
	"net/http"
)

// =========================================================================
// Money movement
// =========================================================================

// ErrCreationInProgress - another payment creation holds the registry lock.
// Clients should show "please wait" instead of retrying straight away.
var ErrCreationInProgress = New(
	CodeConcurrencyConflict,
	"payment",
	"A payment creation is already in progress, please wait",
	http.StatusConflict,
)

// ErrPaymentNotFound - no session is registered for the reference.
var ErrPaymentNotFound = New(
	CodeNotFound,
	"payment",
	"No payment session for this reference",
	http.StatusNotFound,
)

// GatewayError wraps a transport failure or a non-2xx answer from the gateway.
func GatewayError(err error, gatewayStatus int) *AppError {
	return Wrap(err, CodeGatewayError, "gateway", "Payment gateway error", http.StatusBadGateway).
		WithDetails(map[string]any{"gateway_status": gatewayStatus})
}

// PaymentTimeout - no terminal status within the polling window.
func PaymentTimeout(reference string) *AppError {
	return New(CodePaymentTimeout, "payment", "Payment was not confirmed in time", http.StatusGatewayTimeout).
		WithDetails(map[string]any{"reference": reference})
}

// WithdrawalRejected - the gateway did not report a successful transfer.
func WithdrawalRejected(gatewayStatus string) *AppError {
	return New(CodeWithdrawalRejected, "withdrawal", "Withdrawal was rejected by the gateway", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"gateway_status": gatewayStatus})
}

// PersistenceError - money left the gateway but no local ledger record exists.
// The transaction id is always exposed so operators can reconcile by hand.
func PersistenceError(err error, transactionID, stage string) *AppError {
	return Wrap(err, CodePersistenceError, "withdrawal",
		fmt.Sprintf("Transfer %s was sent but could not be recorded; reconciliation required", transactionID),
		http.StatusInternalServerError).
		WithDetails(map[string]any{
			"transaction_id":          transactionID,
			"stage":                   stage,
			"reconciliation_required": true,
		})
}

// =========================================================================
// One-time codes
// =========================================================================

var ErrOTPNoSession = New(
	CodeOTPNoSession,
	"otp",
	"No confirmation code was requested, please request a new one",
	http.StatusBadRequest,
)

var ErrOTPExpired = New(
	CodeOTPExpired,
	"otp",
	"Confirmation code has expired, please request a new one",
	http.StatusGone,
)

var ErrOTPExhausted = New(
	CodeOTPExhausted,
	"otp",
	"Too many incorrect attempts, please request a new code",
	http.StatusTooManyRequests,
)

// OTPIncorrect - wrong code, the session is still usable.
func OTPIncorrect(remaining int) *AppError {
	return New(CodeOTPIncorrect, "otp",
		fmt.Sprintf("Incorrect code, %d attempt(s) remaining", remaining),
		http.StatusBadRequest).
		WithDetails(map[string]any{"attempts_remaining": remaining})
}

// OTPDeliveryFailed - the SMS could not be sent, nothing was kept.
func OTPDeliveryFailed(err error) *AppError {
	return Wrap(err, CodeOTPDelivery, "otp", "Could not send the confirmation code", http.StatusBadGateway)
}

// =========================================================================
// Auth context
// =========================================================================

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrMissingStructure = New(
	CodeForbidden,
	"auth",
	"Token is not bound to a structure",
	http.StatusForbidden,
)
