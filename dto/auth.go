package dto

type MagicLinkRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"omitempty,max=120"`
}

func (r MagicLinkRequest) Validate() error {
	return validate.Struct(r)
}

// MagicLinkResponse carries the signed token only outside production; in
// production delivery happens through the email collaborator.
type MagicLinkResponse struct {
	Sent  bool   `json:"sent"`
	Token string `json:"token,omitempty"`
}

type TokenPair struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Identity is the verified auth capability this core consumes: a request
// either yields one of these or is rejected.
type Identity struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}
