package crypto

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Thumbprint returns the uppercase hex SHA-1 of a DER certificate, the form
// hosting providers display for bound certificates.
func Thumbprint(der []byte) string {
	sum := sha1.Sum(der)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
