// Package cache provides an in-process cache for non-streaming chat
// completions. Identical requests (same model, messages, and parameters)
// hash to the same key, so repeated renders of the same prompt skip the
// network round trip. The cache is volatile; nothing is persisted.
package cache

import (
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"chatcore/internal/core"
)

// Cache defines the interface for completion cache storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a cached response for the key, if present and fresh.
	Get(key string) (*core.ChatResponse, bool)

	// Set stores a response under the key.
	Set(key string, resp *core.ChatResponse)

	// Len reports the number of live entries.
	Len() int
}

// Key derives the cache key for a chat request. The request is marshaled
// to JSON and hashed, so any field that changes the upstream payload
// changes the key.
func Key(req *core.ChatRequest) (string, bool) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16), true
}
