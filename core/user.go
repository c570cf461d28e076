package core

type (
	// User is the identity resolved from a bearer token. ID is the token subject
	// and scopes every collection row.
	User struct {
		ID        string `json:"id"`
		Login     string `json:"login,omitempty"`
		Email     string `json:"email,omitempty"`
		AvatarURL string `json:"avatarUrl,omitempty"`
		Name      string `json:"name,omitempty"`
	}
)
