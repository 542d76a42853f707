package triprepo

import (
	"testing"

	"github.com/tripboard/tripboard-api/internal/adapters/contracttest"
	memmemberrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/memberrepo"
	memparticipantrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/participantrepo"
	mempinrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/pinrepo"
	memwhiteboardrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/whiteboardrepo"
)

func TestContract_TripRepo(t *testing.T) {
	contracttest.RunTripRepo(t, func(t *testing.T) (contracttest.Repos, func()) {
		t.Helper()
		return contracttest.Repos{
			Members:      memmemberrepo.NewRepo(),
			Trips:        NewRepo(),
			Participants: memparticipantrepo.NewRepo(),
			Whiteboards:  memwhiteboardrepo.NewRepo(),
			Pins:         mempinrepo.NewRepo(),
		}, nil
	})
}
