package orchestrator

import "fmt"

// State is a step of a patch run. Runs only move forward; Done and Failed are
// final.
type State int

const (
	Idle State = iota
	FetchingRoster
	MappingSlots
	ApplyingBasePatch
	WritingRecords
	Verifying
	Done
	Failed
)

var stateNames = [...]string{
	"Idle",
	"FetchingRoster",
	"MappingSlots",
	"ApplyingBasePatch",
	"WritingRecords",
	"Verifying",
	"Done",
	"Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// IsFinal reports whether the run has ended.
func (s State) IsFinal() bool {
	return s == Done || s == Failed
}
