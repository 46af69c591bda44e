package types

// User is the verified identity attached to a connection at handshake time.
// It is derived once from the bearer credential and never mutated afterwards.
type User struct {
	Id   string `json:"userId"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Presence returns the user as it appears in presence payloads, without the
// role claim.
func (u User) Presence() User {
	return User{Id: u.Id, Name: u.Name}
}
