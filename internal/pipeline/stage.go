package pipeline

// Stage is the orchestrator's position in a run.
type Stage int32

const (
	StageIdle Stage = iota
	StageFetching
	StageAggregating
	StageNormalizing
	StageClassifying
	StageDeduplicating
	StageFiltering
	StageSorting
	StagePublished
)

var stageNames = [...]string{
	StageIdle:          "idle",
	StageFetching:      "fetching",
	StageAggregating:   "aggregating",
	StageNormalizing:   "normalizing",
	StageClassifying:   "classifying",
	StageDeduplicating: "deduplicating",
	StageFiltering:     "filtering",
	StageSorting:       "sorting",
	StagePublished:     "published",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
