package util

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// randomLength is the number of hex characters kept from a random UUID.
const randomLength = 9

// GenerateID builds an identifier of the form {collection}-{millis}-{random}
// where millis is the unix time in milliseconds at t.
func GenerateID(collection string, t time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:randomLength]
	return collection + "-" + strconv.FormatInt(t.UnixMilli(), 10) + "-" + random
}
