package api

import "time"

// User is a persisted principal. PasswordHash is never serialized.
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	Admin         bool      `json:"admin"`
	Enabled       bool      `json:"enabled"`
	CreateServers bool      `json:"create_servers"`
	CreateBuilds  bool      `json:"create_builds"`
	CreatedAt     time.Time `json:"created_at"`
}

// RequestUser is the authenticated principal attached to one inbound request.
// It is built per request and never persisted.
type RequestUser struct {
	ID      string
	Admin   bool
	Enabled bool
}

// LoginSecret is an API key/secret pair bound to a user. SecretHash is a
// sha256 of the secret, compared in constant time during auth.
type LoginSecret struct {
	Name       string    `json:"name"`
	Key        string    `json:"key"`
	SecretHash string    `json:"-"`
	UserID     string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreatedLoginSecret carries the plaintext secret, returned exactly once.
type CreatedLoginSecret struct {
	Name   string `json:"name"`
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

// JwtResponse is returned by successful login flows.
type JwtResponse struct {
	Token string `json:"jwt"`
	User  User   `json:"user"`
}
