package ledger

import (
	"strings"
	"time"
)

// Transaction id prefixes.
const (
	PrefixNormal = "T"
	PrefixVoid   = "V"
)

const idLayout = "20060102150405.000000"

// GenerateTransactionID returns prefix + YYYYMMDDHHMMSSffffff for t in UTC.
// Ids with the same prefix sort lexically in chronological order.
func GenerateTransactionID(prefix string, t time.Time) string {
	return prefix + strings.Replace(t.UTC().Format(idLayout), ".", "", 1)
}

// stamper hands out timestamps for commands that did not bring their own.
// Consecutive stamps are strictly increasing at microsecond resolution so
// ids minted in one session never collide. Explicit timestamps are kept
// as given apart from UTC conversion and truncation to the microsecond,
// the resolution of the id and of every store.
type stamper struct {
	clock func() time.Time
	last  time.Time
}

func (s *stamper) next(explicit *time.Time) time.Time {
	if explicit != nil {
		return explicit.UTC().Truncate(time.Microsecond)
	}
	now := s.clock().UTC().Truncate(time.Microsecond)
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}
