package searchchat

import "strings"

// Credential is an API secret. It formats as a masked value so it never
// reaches logs or error messages by accident.
type Credential string

// String returns the masked credential.
func (c Credential) String() string {
	return MaskToken(string(c))
}

// GoString returns the masked credential for %#v.
func (c Credential) GoString() string {
	return c.String()
}

// Reveal returns the raw secret. Only transports should call it.
func (c Credential) Reveal() string {
	return string(c)
}

// Empty reports whether the credential is blank.
func (c Credential) Empty() bool {
	return strings.TrimSpace(string(c)) == ""
}

// Validate returns ErrCredential for a blank credential.
func (c Credential) Validate() error {
	if c.Empty() {
		return ErrCredential
	}
	return nil
}

// MaskToken returns a masked version of the token for security
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
