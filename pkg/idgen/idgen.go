// Package idgen generates document keys.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/pay-theory/arangorm/pkg/errors"
)

// Strategy names a key generator.
type Strategy string

// Key generation strategies. The empty strategy leaves key assignment to the server.
const (
	None   Strategy = ""
	GUID   Strategy = "guid"
	UUIDv1 Strategy = "uuid"
	UUIDv4 Strategy = "uuidv4"
	Now    Strategy = "now"
	XID    Strategy = "xid"
)

var aliases = map[string]Strategy{
	"uuid-v1":          UUIDv1,
	"uuid-v4":          UUIDv4,
	"timestamp-string": Now,
}

var clock = time.Now

// Parse resolves a strategy tag, accepting the long aliases.
func Parse(tag string) (Strategy, error) {
	if s, ok := aliases[tag]; ok {
		return s, nil
	}
	switch s := Strategy(tag); s {
	case None, GUID, UUIDv1, UUIDv4, Now, XID:
		return s, nil
	default:
		return None, fmt.Errorf("%w: %q", errors.ErrUnknownStrategy, tag)
	}
}

// Generate returns a new key for tag. An empty tag returns "".
func Generate(tag string) (string, error) {
	s, err := Parse(tag)
	if err != nil {
		return "", err
	}

	switch s {
	case GUID, UUIDv4:
		id, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	case UUIDv1:
		id, err := uuid.NewUUID()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	case Now:
		// keys may not contain spaces, so the timestamp is numeric
		return strconv.FormatInt(clock().UnixNano(), 10), nil
	case XID:
		return xid.New().String(), nil
	default:
		return "", nil
	}
}

// EdgeKey derives a deterministic key from an edge's endpoints: the hex
// SHA-256 of from followed by to.
func EdgeKey(from, to string) string {
	sum := sha256.Sum256([]byte(from + to))
	return hex.EncodeToString(sum[:])
}
