package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// ForSale derives a ledger id from the checkout timestamp: the last six
// digits of the unix-millisecond clock, plus a short random suffix so
// two checkouts in the same millisecond still get distinct ids.
func ForSale(at time.Time) string {
	buf := make([]byte, 2)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("SALE-%06d", at.UnixMilli()%1_000_000)
	}
	return fmt.Sprintf("SALE-%06d-%s", at.UnixMilli()%1_000_000, hex.EncodeToString(buf))
}

// ForCartLine derives a cart line id from the add timestamp and the
// item being added.
func ForCartLine(at time.Time, itemID string) string {
	return fmt.Sprintf("%d-%s", at.UnixMilli(), itemID)
}
