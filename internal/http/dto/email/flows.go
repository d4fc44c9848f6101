package email

// ResetRequest es el body de POST /auth/password-reset.
type ResetRequest struct {
	Email string `json:"email"`
}

// ResetConfirmRequest es el body de POST /auth/password-reset/confirm.
type ResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// VerifyRequest es el body de POST /auth/email/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// ResendRequest es el body de POST /auth/email/resend-verification.
type ResendRequest struct {
	Email string `json:"email"`
}

// AcceptedResponse es la respuesta 202 de los flujos que no revelan
// existencia de cuentas.
type AcceptedResponse struct {
	Status string `json:"status"`
}
