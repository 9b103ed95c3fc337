package pipeline

import "fmt"

// Stage is a position in the sales pipeline.
type Stage string

const (
	StageInquiry       Stage = "inquiry"
	StageQualification Stage = "qualification"
	StageSpecification Stage = "specification"
	StageQuotation     Stage = "quotation"
	StageNegotiation   Stage = "negotiation"
	StageClosedWon     Stage = "closed_won"
	StageClosedLost    Stage = "closed_lost"
)

// Stages lists every stage in happy-path order.
var Stages = []Stage{
	StageInquiry,
	StageQualification,
	StageSpecification,
	StageQuotation,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

// ParseStage validates s against the stage enumeration.
func ParseStage(s string) (Stage, error) {
	for _, stage := range Stages {
		if string(stage) == s {
			return stage, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

// IsTerminal reports whether no transition may leave the stage other than a reopen.
func (s Stage) IsTerminal() bool {
	return s == StageClosedWon || s == StageClosedLost
}

func (s Stage) String() string {
	return string(s)
}
