package optimizer

import "fmt"

// State is a step of a run. A run moves forward through the states in
// declaration order, skipping Deduped and Renamed when those passes are
// disabled, and may drop into Failed from any of them.
type State int

const (
	Idle State = iota
	Extracted
	TableDecoded
	Deduped
	Renamed
	TableEncoded
	Repackaged
	Finalized
	Failed
)

var stateNames = [...]string{
	"Idle", "Extracted", "TableDecoded", "Deduped", "Renamed",
	"TableEncoded", "Repackaged", "Finalized", "Failed",
}

func (s State) String() string {
	if s < Idle || s > Failed {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}
