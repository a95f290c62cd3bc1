// Package reference generates human-shareable booking references.
package reference

import (
	"crypto/rand"
	"fmt"
	"time"
)

// alphabet avoids characters easily misread over the phone (0/O, 1/I/L)
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// suffixLength gives ~31^6 combinations per day, comfortably unique for
// a single operator's volume; the database unique constraint backstops
// the rest.
const suffixLength = 6

// New returns a booking reference of the form ST-20260828-X7KQ2M
func New() (string, error) {
	buf := make([]byte, suffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate booking reference: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return fmt.Sprintf("ST-%s-%s", time.Now().Format("20060102"), string(buf)), nil
}
