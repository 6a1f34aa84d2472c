package domain

// AdminSeed describes the administrator account ensured at startup.
type AdminSeed struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Configured reports whether a seed was supplied at all.
func (s AdminSeed) Configured() bool {
	return s.Email != "" && s.Password != ""
}
