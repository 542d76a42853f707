package domain

import "testing"

func TestNormalizeHumanName(t *testing.T) {
	t.Parallel()

	if got := NormalizeHumanName("  Chiang   Mai \t trip "); got != "Chiang Mai trip" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeHumanName("   "); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
