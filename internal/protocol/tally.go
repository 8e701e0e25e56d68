package protocol

import (
	"github.com/vouchsafe/vouchsafe/common"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

// Verdict is the outcome of counting revealed results for a task.
type Verdict struct {
	CommittedCount  uint32
	MajorityReached bool
	MajorityHash    common.Hash
	MajorityCount   uint32
}

// Tally counts revealed results by content hash. Submissions must be in the
// task's stored server order; the leader only changes when a hash reaches a
// strictly greater count than the current maximum, so a later tie never
// displaces an earlier leader. Majority is measured against the full
// authorized set: servers that never committed or never revealed count
// against reaching it.
func Tally(task *types.Task, submissions []*types.ServerSubmission) Verdict {
	var verdict Verdict
	counts := make(map[common.Hash]uint32, len(submissions))

	for _, sub := range submissions {
		if sub.Committed {
			verdict.CommittedCount++
		}
		if !sub.Revealed {
			continue
		}

		hash := VoteHash(sub.Result)
		counts[hash]++
		if counts[hash] > verdict.MajorityCount {
			verdict.MajorityCount = counts[hash]
			verdict.MajorityHash = hash
		}
	}

	verdict.MajorityReached = verdict.MajorityCount > task.MajorityThreshold()
	return verdict
}
