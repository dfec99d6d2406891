package models

// Principal — аутентифицированный субъект запроса. Поставляется слоем
// аутентификации; сервисы доверяют ему и сами учётные данные не проверяют.
type Principal struct {
	UserID int        `json:"user_id"`
	Role   UserRole   `json:"role"`
	Status UserStatus `json:"status"`
}

// IsStaff reports whether the principal may adjudicate disputes and
// manage tournaments they do not organize.
func (p Principal) IsStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleSupport || p.Role == RoleTournamentManager
}

// IsAdmin reports whether the principal has full administrative rights.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
