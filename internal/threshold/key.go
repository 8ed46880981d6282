package threshold

import (
	"fmt"
	"strings"
)

// Key identifies one directed venue pair and instrument: profits observed
// buying on BuyVenue and selling on SellVenue.
type Key struct {
	BuyVenue  string
	SellVenue string
	Coin      string
}

// Reversed returns the opposite-direction key for the same instrument.
func (k Key) Reversed() Key {
	return Key{BuyVenue: k.SellVenue, SellVenue: k.BuyVenue, Coin: k.Coin}
}

// String renders the key in the B:<buy>|S:<sell>|C:<coin> form used by the
// checkpoint snapshots.
func (k Key) String() string {
	return fmt.Sprintf("B:%s|S:%s|C:%s", k.BuyVenue, k.SellVenue, k.Coin)
}

// ParseKey parses the String form back into a Key.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 ||
		!strings.HasPrefix(parts[0], "B:") ||
		!strings.HasPrefix(parts[1], "S:") ||
		!strings.HasPrefix(parts[2], "C:") {
		return Key{}, fmt.Errorf("threshold: malformed key %q", s)
	}
	return Key{
		BuyVenue:  parts[0][2:],
		SellVenue: parts[1][2:],
		Coin:      parts[2][2:],
	}, nil
}
