// Package id generates the sortable identifiers used for arenas, rooms,
// invites and bus correlation ids.
package id

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	entropyMu sync.Mutex
)

// New returns a ULID string. Ids created by one process sort by creation time.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewPrefixed returns prefix + "_" + New().
func NewPrefixed(prefix string) string {
	return prefix + "_" + New()
}

// Time extracts the creation time embedded in an id made by New or NewPrefixed.
func Time(v string) (time.Time, bool) {
	if i := strings.LastIndexByte(v, '_'); i >= 0 {
		v = v[i+1:]
	}
	u, err := ulid.ParseStrict(v)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()), true
}
