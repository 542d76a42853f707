package idempotency

import (
	"context"
	"time"

	"github.com/tripboard/tripboard-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes.
//
// Strategy: key + route + subject + request body hash.
// Route is represented as HTTP method + path template (e.g. "POST /whiteboards/{whiteboardId}/pins").
// A Fingerprint with an empty BodyHash is the "meta" record holding the first body hash
// seen for the key, used to detect key reuse with a different payload.
type Fingerprint struct {
	Key      Key
	Subject  domain.SubjectID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error

	// DeleteBefore drops records created before cutoff and reports how many were removed.
	// Retries after that point run the request again.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
