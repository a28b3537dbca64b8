package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	PaymentHandler    *PaymentHandler
	WithdrawalHandler *WithdrawalHandler
	HealthHandler     *HealthHandler
}
