package protocol

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

func makeServers(n int) []types.Address {
	servers := make([]types.Address, n)
	for i := range servers {
		servers[i] = types.HexToAddress(fmt.Sprintf("0x%040x", i+1))
	}
	return servers
}

func revealedSub(result string) *types.ServerSubmission {
	return &types.ServerSubmission{
		Committed: true,
		Result:    []byte(result),
		Revealed:  true,
	}
}

func committedSub() *types.ServerSubmission {
	return &types.ServerSubmission{Committed: true}
}

func unsetSub() *types.ServerSubmission {
	return &types.ServerSubmission{}
}

func TestTally(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		submissions     []*types.ServerSubmission
		majorityReached bool
		majorityCount   uint32
		committedCount  uint32
		majorityResult  string // empty means don't check the hash
	}{
		{
			name: "unanimous",
			submissions: []*types.ServerSubmission{
				revealedSub("correct"), revealedSub("correct"), revealedSub("correct"),
				revealedSub("correct"), revealedSub("correct"),
			},
			majorityReached: true,
			majorityCount:   5,
			committedCount:  5,
			majorityResult:  "correct",
		},
		{
			name: "three of five",
			submissions: []*types.ServerSubmission{
				revealedSub("correct"), revealedSub("wrong-a"), revealedSub("correct"),
				revealedSub("wrong-b"), revealedSub("correct"),
			},
			majorityReached: true,
			majorityCount:   3,
			committedCount:  5,
			majorityResult:  "correct",
		},
		{
			name: "split two-two-one has no majority",
			submissions: []*types.ServerSubmission{
				revealedSub("a"), revealedSub("a"), revealedSub("b"),
				revealedSub("b"), revealedSub("c"),
			},
			majorityReached: false,
			majorityCount:   2,
			committedCount:  5,
		},
		{
			name: "tie never displaces the first leader",
			submissions: []*types.ServerSubmission{
				revealedSub("first"), revealedSub("first"), revealedSub("second"),
				revealedSub("second"), unsetSub(),
			},
			majorityReached: false,
			majorityCount:   2,
			committedCount:  4,
			majorityResult:  "first",
		},
		{
			name: "non-participation counts against majority",
			submissions: []*types.ServerSubmission{
				revealedSub("correct"), revealedSub("correct"), committedSub(),
				unsetSub(), unsetSub(),
			},
			majorityReached: false,
			majorityCount:   2,
			committedCount:  3,
			majorityResult:  "correct",
		},
		{
			name: "bare strict majority of three",
			submissions: []*types.ServerSubmission{
				revealedSub("correct"), revealedSub("correct"), unsetSub(),
			},
			majorityReached: true,
			majorityCount:   2,
			committedCount:  2,
			majorityResult:  "correct",
		},
		{
			name: "nobody revealed",
			submissions: []*types.ServerSubmission{
				committedSub(), committedSub(), unsetSub(),
			},
			majorityReached: false,
			majorityCount:   0,
			committedCount:  2,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			task := &types.Task{Id: 1, Servers: makeServers(len(tt.submissions))}
			verdict := Tally(task, tt.submissions)

			require.Equal(t, tt.majorityReached, verdict.MajorityReached)
			require.Equal(t, tt.majorityCount, verdict.MajorityCount)
			require.Equal(t, tt.committedCount, verdict.CommittedCount)
			if tt.majorityResult != "" {
				require.Equal(t, VoteHash([]byte(tt.majorityResult)), verdict.MajorityHash)
			}
		})
	}
}

func TestMajorityThresholdIsFullSetFloorHalf(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		numServers int
		threshold  uint32
	}{
		{3, 1}, {4, 2}, {5, 2}, {6, 3}, {7, 3},
	} {
		task := &types.Task{Servers: makeServers(tc.numServers)}
		require.Equal(t, tc.threshold, task.MajorityThreshold(), "numServers=%d", tc.numServers)
	}
}
