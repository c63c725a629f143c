// Package cache provides the key-value cache used for processed
// documents, answers and session metrics.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a TTL key-value store. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key for ttl. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key.
	Delete(ctx context.Context, key string) error
}

// DocumentKey is the cache key marking a processed document.
func DocumentKey(sourceURL string) string {
	return "document:" + hash(sourceURL)
}

// AnswerKey is the cache key for one question against one document.
func AnswerKey(documentID, question string) string {
	return "qa:" + hash(documentID+":"+question)
}

// MetricsKey is the cache key for one request session's metrics.
func MetricsKey(sessionID string) string {
	return "metrics:session:" + sessionID
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}
