package auth

// Роли внутри структуры (магазина)
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

const (
	PermPaymentsRead     = "payments:read"
	PermPaymentsWrite    = "payments:write"
	PermWithdrawalsRead  = "withdrawals:read"
	PermWithdrawalsWrite = "withdrawals:write"
)

// Permissions список разрешений. Кассир принимает оплату, но не выводит средства.
var Permissions = map[string][]string{
	RoleOwner: {
		PermPaymentsRead,
		PermPaymentsWrite,
		PermWithdrawalsRead,
		PermWithdrawalsWrite,
	},
	RoleManager: {
		PermPaymentsRead,
		PermPaymentsWrite,
		PermWithdrawalsRead,
	},
	RoleCashier: {
		PermPaymentsRead,
		PermPaymentsWrite,
	},
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role, permission string) bool {
	permissions, exists := Permissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CanPerformAction проверяет может ли пользователь выполнить действие
func CanPerformAction(claims *Claims, permission string) bool {
	return claims != nil && HasPermission(claims.Role, permission)
}
