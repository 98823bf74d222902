package auth

// Credential is an owned secret buffer.
//
// The buffer passed to NewCredential belongs to the Credential from then on.
// Wipe overwrites it with zeros and drops the reference, so no second
// reference can observe the secret after the engine finishes a try.
type Credential struct {
	buf []byte
}

// NewCredential takes ownership of secret.
func NewCredential(secret []byte) *Credential {
	return &Credential{buf: secret}
}

// Bytes returns the secret. The slice aliases the credential's storage and
// must not be retained after the call that received the credential returns.
func (c *Credential) Bytes() []byte {
	if c == nil {
		return nil
	}
	return c.buf
}

// String returns the secret as a string for APIs that require one.
// The returned copy cannot be wiped; prefer Bytes.
func (c *Credential) String() string {
	return string(c.Bytes())
}

// Len returns the secret length.
func (c *Credential) Len() int {
	return len(c.Bytes())
}

// Wipe zeroes the buffer and releases it. Safe to call more than once and
// on a nil credential.
func (c *Credential) Wipe() {
	if c == nil || c.buf == nil {
		return
	}
	clear(c.buf)
	c.buf = nil
}

// Wiped reports whether the secret has been released.
func (c *Credential) Wiped() bool {
	return c == nil || c.buf == nil
}
