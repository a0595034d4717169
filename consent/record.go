package consent

import (
	"math"
	"strconv"
	"time"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
)

// Record is a consent record as stored by the EduConsent contract, in a form
// suitable for JSON transport
type Record struct {
	Owner     string   `json:"owner"`
	Requester string   `json:"requester"`
	DataType  DataType `json:"dataType"`
	ExpiresAt string   `json:"expiresAt"`
	Exists    bool     `json:"exists"`
	Active    bool     `json:"active"`
}

func recordFromChain(c *chain.Consent) *Record {
	return &Record{
		Owner:     c.Owner.Hex(),
		Requester: c.Requester.Hex(),
		DataType:  DataType(c.DataType),
		ExpiresAt: strconv.FormatUint(c.ExpiresAt, 10),
		Exists:    c.Exists,
		Active:    c.Active,
	}
}

func (r *Record) expiresAtUnix() (uint64, bool) {
	v, err := strconv.ParseUint(r.ExpiresAt, 10, 64)
	return v, err == nil
}

// ExpiresAtTime returns the expiry as a time.Time; the zero time if
// ExpiresAt is not a decimal timestamp
func (r *Record) ExpiresAtTime() time.Time {
	v, ok := r.expiresAtUnix()
	if !ok || v > math.MaxInt64 {
		return time.Time{}
	}
	return time.Unix(int64(v), 0)
}

// ValidAt checks if the consent is valid at the given time. An unreadable
// expiry is never valid.
func (r *Record) ValidAt(now time.Time) bool {
	v, ok := r.expiresAtUnix()
	return ok && IsCurrentlyValid(r.Exists, r.Active, v, now)
}

// IsCurrentlyValid is the validity rule of a consent: it must exist, must not
// be revoked, and must expire strictly after now.
func IsCurrentlyValid(exists, active bool, expiresAt uint64, now time.Time) bool {
	if !exists || !active {
		return false
	}
	n := now.Unix()
	if n < 0 {
		return true
	}
	return expiresAt > uint64(n)
}
