package domain

// TwoFactorEnrollment is returned by the enable step. 2FA stays inactive
// until the first code is verified.
type TwoFactorEnrollment struct {
	Secret  string // base32, for manual entry
	URI     string // otpauth:// key URI
	QRCode  string // data:image/png;base64,...
	Enabled bool   // always false at this point
}
