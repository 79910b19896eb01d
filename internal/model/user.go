package model

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResult is the payload of /auth/login and /auth/register. Token is
// optional; some deployments authenticate by cookie only.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token,omitempty"`
}
