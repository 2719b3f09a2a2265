package model

// LoginRequest is the djoser token login body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the sign-up form. ConfirmPassword is checked locally and
// never sent.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"-" validate:"eqfield=Password"`
	Name            string `json:"name" validate:"required"`
}

// TokenResponse is the login body. djoser answers with auth_token; some
// deployments answer with token.
type TokenResponse struct {
	AuthToken string `json:"auth_token,omitempty"`
	Token     string `json:"token,omitempty"`
}

// Value returns whichever token field is populated.
func (t TokenResponse) Value() string {
	if t.AuthToken != "" {
		return t.AuthToken
	}
	return t.Token
}
