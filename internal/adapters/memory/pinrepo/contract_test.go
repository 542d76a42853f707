package pinrepo

import (
	"testing"

	"github.com/tripboard/tripboard-api/internal/adapters/contracttest"
	memmemberrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/memberrepo"
	memparticipantrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/participantrepo"
	memtriprepo "github.com/tripboard/tripboard-api/internal/adapters/memory/triprepo"
	memwhiteboardrepo "github.com/tripboard/tripboard-api/internal/adapters/memory/whiteboardrepo"
)

func TestContract_PinRepo(t *testing.T) {
	newRepos := func(t *testing.T) (contracttest.Repos, func()) {
		t.Helper()
		return contracttest.Repos{
			Members:      memmemberrepo.NewRepo(),
			Trips:        memtriprepo.NewRepo(),
			Participants: memparticipantrepo.NewRepo(),
			Whiteboards:  memwhiteboardrepo.NewRepo(),
			Pins:         NewRepo(),
		}, nil
	}
	contracttest.RunPinRepo(t, newRepos)
	contracttest.RunPinRelink(t, newRepos)
}
