package dto

// Identity is the caller as vouched for by the authentication collaborator.
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
