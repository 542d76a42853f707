package clock

import (
	"time"

	clockport "github.com/tripboard/tripboard-api/internal/ports/out/clock"
)

var _ clockport.Clock = SystemClock{}

// SystemClock reports wall-clock time in UTC.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
