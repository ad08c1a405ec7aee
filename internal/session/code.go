package session

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet omits characters that read ambiguously when shared out loud
// or typed from a screen (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const maxCodeAttempts = 10

// newCode generates a human-typeable session code not currently held by any
// live session. Closed sessions may reuse codes; only the live registry is
// collision-checked.
func (s *Service) newCode() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		buf := make([]byte, s.codeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate session code: %w", err)
		}
		for i, b := range buf {
			buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
		}

		code := string(buf)
		if !s.reg.codeTaken(code) {
			return code, nil
		}
	}

	return "", fmt.Errorf("generate session code: %d collisions in a row", maxCodeAttempts)
}
