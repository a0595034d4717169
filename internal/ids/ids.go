package ids

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// CIDPrefix is the prefix of every content identifier
const CIDPrefix = "cid_"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a lexicographically sortable identifier
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewCID returns a fresh opaque content identifier for a wallet
func NewCID() string {
	return CIDPrefix + strings.ToLower(New())
}
