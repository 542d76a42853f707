package participantrepo

import (
	"testing"

	"github.com/tripboard/tripboard-api/internal/adapters/contracttest"
	pgmemberrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/memberrepo"
	pgpinrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/pinrepo"
	"github.com/tripboard/tripboard-api/internal/adapters/postgres/testutil"
	pgtriprepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/triprepo"
	pgwhiteboardrepo "github.com/tripboard/tripboard-api/internal/adapters/postgres/whiteboardrepo"
)

func TestContract_PostgresParticipantRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	issuer := "https://issuer.test"

	contracttest.RunParticipantRepo(t, func(t *testing.T) (contracttest.Repos, func()) {
		t.Helper()
		return contracttest.Repos{
			Members:      pgmemberrepo.NewRepo(pool, issuer),
			Trips:        pgtriprepo.NewRepo(pool),
			Participants: NewRepo(pool),
			Whiteboards:  pgwhiteboardrepo.NewRepo(pool),
			Pins:         pgpinrepo.NewRepo(pool),
		}, nil
	})
}
