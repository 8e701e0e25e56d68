package types

import "github.com/vouchsafe/vouchsafe/common"

// EventKind discriminates journal entries. The journal is the append-only
// audit trail exposed to external tooling; it is not part of the settlement
// correctness contract.
type EventKind uint8

const (
	_ EventKind = iota
	EventTaskCreated
	EventResultCommitted
	EventResultRevealed
	EventTaskResolved
	EventServerReward
	EventServerForfeit
)

var eventKindNames = map[EventKind]string{
	EventTaskCreated:     "TaskCreated",
	EventResultCommitted: "ResultCommitted",
	EventResultRevealed:  "ResultRevealed",
	EventTaskResolved:    "TaskResolved",
	EventServerReward:    "ServerReward",
	EventServerForfeit:   "ServerForfeit",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "UnknownEvent"
}

// Event is a single journal entry. Only the fields relevant to the Kind are
// populated; the rest keep their zero values.
type Event struct {
	Kind   EventKind `json:"kind"`
	TaskId TaskId    `json:"taskId"`

	Client Address `json:"client,omitempty"`
	Server Address `json:"server,omitempty"`

	Descriptor common.Hash `json:"descriptor,omitempty"`
	Commitment common.Hash `json:"commitment,omitempty"`

	NumServers uint32 `json:"numServers,omitempty"`
	Stake      Value  `json:"stake,omitempty"`
	Amount     Value  `json:"amount,omitempty"`

	MajorityReached bool        `json:"majorityReached,omitempty"`
	MajorityHash    common.Hash `json:"majorityHash,omitempty"`
	MajorityCount   uint32      `json:"majorityCount,omitempty"`
}

// Observer receives journal entries as they are durably committed.
// Callbacks run after the writing transaction succeeds, in journal order.
type Observer interface {
	OnEvent(event Event)
}
