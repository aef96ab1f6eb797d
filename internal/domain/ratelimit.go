package domain

// RateLimitRecord tracks the attempt history for one rate-limit key.
// Keys are "send:<email>" for send-cooldown tracking and "verify:<userId>"
// for failed-verification tracking. At most one record exists per key.
//
// Count is only meaningful inside [WindowStart, WindowStart+window); once the
// window has passed the record is logically expired and treated as absent.
// LockedUntil, when set, is always WindowStart plus the verify window.
// All timestamps are milliseconds since epoch.
type RateLimitRecord struct {
	Key         string `json:"key" dynamodbav:"key"`
	Count       int    `json:"count" dynamodbav:"count"`
	WindowStart int64  `json:"window_start" dynamodbav:"window_start"`
	LockedUntil int64  `json:"locked_until,omitempty" dynamodbav:"locked_until"`
	LastSentAt  int64  `json:"last_sent_at,omitempty" dynamodbav:"last_sent_at"`
	ExpiresAt   int64  `json:"-" dynamodbav:"expires_at"` // TTL (Unix seconds), durable store only
}
