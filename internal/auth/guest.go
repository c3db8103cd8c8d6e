package auth

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

// Guest labels follow a reserved pattern so a guest can be told apart from a
// registered account by the label alone, without a schema flag.
var guestLabelRe = regexp.MustCompile(`^guest-\d+$`)

func IsGuestLabel(label string) bool {
	return guestLabelRe.MatchString(label)
}

// NewGuestLabel generates a guest-<digits> label with 12 random digits.
func NewGuestLabel() (string, error) {
	const digits = "0123456789"
	out := make([]byte, 12)
	for i := 0; i < 12; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		out[i] = digits[n.Int64()]
	}
	return "guest-" + string(out), nil
}
