package domain

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// LoginOutcome is the result of a password login: either a full TokenPair or
// a TwoFactorChallenge. The unexported method closes the set.
type LoginOutcome interface {
	loginOutcome()
}

// TokenPair is an access token and a refresh token issued together.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64 // access token lifetime, seconds
}

func (TokenPair) loginOutcome() {}

// TwoFactorChallenge is returned instead of a TokenPair when the account has
// 2FA enabled. The temporary token is only good for completing the second
// factor.
type TwoFactorChallenge struct {
	TemporaryToken string
	ExpiresIn      int64 // seconds
}

func (TwoFactorChallenge) loginOutcome() {}
