package service

// Stage is a step of a valuation run.
type Stage string

// Stages in execution order. Failed is terminal.
const (
	StageGeocoding           Stage = "geocoding"
	StageEstimating          Stage = "estimating"
	StageFetchingComparables Stage = "fetching_comparables"
	StageNormalizing         Stage = "normalizing"
	StageDone                Stage = "done"
	StageFailed              Stage = "failed"
)

func (s Stage) String() string { return string(s) }
