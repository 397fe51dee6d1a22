package platform

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

const stateTokenBytes = 24

// NewID returns a run identifier. It is stamped on logs, tags and the run
// report so every artifact of one run can be found together.
func NewID() string {
	return uuid.New().String()
}

// NewStateToken returns an unguessable value for the OAuth state parameter.
func NewStateToken() string {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
