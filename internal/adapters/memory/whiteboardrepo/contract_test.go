package whiteboardrepo

import (
	"testing"

	"github.com/tripboard/tripboard-api/internal/adapters/contracttest"
	memmemberrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/memberrepo"
	memparticipantrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/participantrepo"
	mempinrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/pinrepo"
	memtriprepo "github.com/tripboard/tripboard-api/internal/adapters/memory/triprepo"
)

func TestContract_WhiteboardRepo(t *testing.T) {
	contracttest.RunWhiteboardRepo(t, func(t *testing.T) (contracttest.Repos, func()) {
		t.Helper()
		return contracttest.Repos{
			Members:      memmemberrepo.NewRepo(),
			Trips:        memtriprepo.NewRepo(),
			Participants: memparticipantrepo.NewRepo(),
			Whiteboards:  NewRepo(),
			Pins:         mempinrepo.NewRepo(),
		}, nil
	})
}
