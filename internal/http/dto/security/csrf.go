package security

// CSRFTokenResponse es la respuesta de GET /auth/csrf-token. El mismo valor
// viaja también en la cookie del double-submit.
type CSRFTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
}
