package billing

// CheckoutRequest es el body de POST /auth/billing/checkout-session.
type CheckoutRequest struct {
	PlanID string `json:"plan_id"`
}

// SessionURLResponse devuelve la URL de redirección al proveedor.
type SessionURLResponse struct {
	URL string `json:"url"`
}
