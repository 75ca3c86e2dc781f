package id

import (
	"crypto/rand"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time and safe for use as DynamoDB partition keys.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// NewRoomID returns a random UUIDv4. Room ids are the only credential needed
// to reach a room, so they carry no timestamp or caller input.
func NewRoomID() string {
	return uuid.NewString()
}
