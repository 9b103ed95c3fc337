package pipeline

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// TransitionKey identifies one transition of a lead. It is derived from the
// version the transition was applied on, so a retried request for the same
// transition produces the same key.
func TransitionKey(leadID uuid.UUID, version int, from, to Stage) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s|%d|%s|%s", leadID, version, from, to)))
	return hex.EncodeToString(sum[:16])
}

func runKey(transitionKey string, ruleID uuid.UUID, actionIndex int) string {
	return fmt.Sprintf("%s:%s:%d", transitionKey, ruleID, actionIndex)
}

// FormatBuildNumber renders a production build number, e.g. JTH-2026-0007.
func FormatBuildNumber(year, sequence int) string {
	return fmt.Sprintf("JTH-%d-%04d", year, sequence)
}
