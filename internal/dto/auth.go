package dto

// CredentialsRequest is the body of register, login and change-credentials.
type CredentialsRequest struct {
	Login    string `json:"login" binding:"required,min=3,max=64,login_chars"`
	Password string `json:"password" binding:"required,min=3,max=128"`
}

// TotpCodeRequest carries the second-factor code for a pending login. The
// pending request itself is addressed by the path.
type TotpCodeRequest struct {
	Code string `json:"code" binding:"required,numeric"`
}

// LoginResponse is the outcome of the password step. The token fields are
// present only when no second factor is required.
type LoginResponse struct {
	RequestID      string   `json:"request_id"`
	TotpActive     bool     `json:"totp_active"`
	AccessToken    string   `json:"access_token,omitempty"`
	RefreshToken   string   `json:"refresh_token,omitempty"`
	RequiredFields []string `json:"required_fields,omitempty"`
}

// TokenResponse is a completed token pair.
type TokenResponse struct {
	AccessToken    string   `json:"access_token"`
	RefreshToken   string   `json:"refresh_token"`
	RequiredFields []string `json:"required_fields"`
}

// ProvisioningResponse carries the otpauth URL for an authenticator app.
type ProvisioningResponse struct {
	URL string `json:"url"`
}

// SocialCallbackRequest is the provider redirect payload.
type SocialCallbackRequest struct {
	Code  string `form:"code" binding:"required"`
	State string `form:"state"`
}

// AuthURLResponse points the client at the provider's consent screen.
type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID         string   `json:"id"`
	Login      string   `json:"login"`
	Email      string   `json:"email,omitempty"`
	TotpActive bool     `json:"totp_active"`
	Roles      []string `json:"roles"`
}
