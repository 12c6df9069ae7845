package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// ControlCode computes the keyed digest suffix of a code: a blake2b-256 hash
// keyed with the interval salt over the decimal sequence id, hex encoded and
// truncated to length characters.
func ControlCode(salt string, sequenceID int64, length int) string {
	digest, err := blake2b.New256([]byte(salt))
	if err != nil {
		// Only reachable with a salt above blake2b's 64-byte key limit;
		// generated salts are 32 hex characters.
		panic(err)
	}
	digest.Write([]byte(strconv.FormatInt(sequenceID, 10)))
	return hex.EncodeToString(digest.Sum(nil))[:length]
}

// FormatCode renders the full code for a sequence id.
func FormatCode(prefix int, sequenceID int64, idLength int, salt string, hashLength int) string {
	return fmt.Sprintf("%d%0*d%s", prefix, idLength, sequenceID, ControlCode(salt, sequenceID, hashLength))
}

// NewSalt returns a fresh random salt for one allocation interval.
func NewSalt() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
