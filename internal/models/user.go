package models

// User is an account that can register and log in.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`

	// Password is the plain-text input on register/update. It is never
	// persisted or serialized in responses.
	Password     string `json:"password,omitempty" validate:"required,maxbytes=72"`
	PasswordHash string `json:"-" validate:"-"`
}
