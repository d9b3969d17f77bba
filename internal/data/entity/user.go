package entity

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleProvider UserRole = "provider"
	RoleAdmin    UserRole = "admin"
	RoleSystem   UserRole = "system"
)

// Actor is whoever asks for a change: an authenticated user or an internal process.
type Actor struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

var (
	ActorWebhook       = Actor{ID: "system:webhook", Role: RoleSystem}
	ActorReconciler    = Actor{ID: "system:reconciler", Role: RoleSystem}
	ActorPaymentVerify = Actor{ID: "system:payment-verify", Role: RoleSystem}
)

func (a Actor) IsPrivileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}
