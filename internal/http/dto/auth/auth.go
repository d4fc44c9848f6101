package auth

// SignupRequest es el body de POST /auth/signup.
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SignupResponse incluye el estado secundario del notifier: email_sent en
// false indica que el registro fue exitoso pero el email no salió.
type SignupResponse struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	EmailSent     bool   `json:"email_sent"`
}

// LoginRequest es el body de POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse devuelve el token de sesión además de setear la cookie,
// para clientes que prefieren Authorization: Bearer.
type LoginResponse struct {
	SessionToken string `json:"session_token"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

// SessionResponse es la respuesta de GET /auth/session.
type SessionResponse struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	EmailVerified bool   `json:"email_verified"`
	Subscription  string `json:"subscription"`
}
