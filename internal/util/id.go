package util

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// TimeID returns a millisecond-timestamp id, optionally prefixed.
// Comment and reply ids use these so they sort chronologically.
func TimeID(prefix string) string {
	return prefix + strconv.FormatInt(time.Now().UnixMilli(), 10)
}
