package domain

// User is the persisted identity record returned by the login and signup
// endpoints.
type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Session is the authenticated identity held by the client. A Session only
// exists with a non-empty token.
type Session struct {
	UserID      ID
	DisplayName string
	Email       string
	Token       string

	// RestoredFromStorage is true when the session was loaded from the
	// persisted store rather than obtained from a credential exchange.
	RestoredFromStorage bool
}

// NewSession builds a session from a token and its user record.
func NewSession(token string, u User, restored bool) Session {
	return Session{
		UserID:              u.ID,
		DisplayName:         u.Name,
		Email:               u.Email,
		Token:               token,
		RestoredFromStorage: restored,
	}
}

// User returns the user record of the session.
func (s Session) User() User {
	return User{ID: s.UserID, Name: s.DisplayName, Email: s.Email}
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupInput is the signup request body.
type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AuthResponse is the success body of login and signup.
type AuthResponse struct {
	Token   string `json:"token"`
	User    *User  `json:"user"`
	Message string `json:"message"`
}
