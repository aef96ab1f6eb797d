package domain

// EmailToken is a pending one-time code for a user.
// PK: user_id. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type EmailToken struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Code      string `json:"-" dynamodbav:"code"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
