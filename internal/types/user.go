package types

import "time"

// User is the full credential-store record. The password hash stays
// inside the user package; the json:"-" tag is a second line of defense
// should a User ever reach an encoder.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	JoinedAt     time.Time `json:"join_at"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

// PublicUser is the profile slice exposed by listing endpoints and
// joined into messages. It structurally cannot carry the hash.
type PublicUser struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Profile is the detail view returned by GET /users/{username}:
// the public fields plus the two timestamps, never the hash.
type Profile struct {
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone"`
	JoinedAt    time.Time `json:"join_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// RegisterParams is the input to credential-store registration. The
// plaintext password lives only here and in the bcrypt call.
type RegisterParams struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Public projects the profile slice of a full record.
func (u *User) Public() PublicUser {
	return PublicUser{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
