package types

import (
	"encoding/binary"
	"strconv"

	"github.com/vouchsafe/vouchsafe/common"
)

// MinServers is the quorum floor: fewer than 3 authorized servers cannot
// produce a meaningful strict-majority vote.
const MinServers = 3

// TaskId is the unique id of a task, serves as a key in DB.
// Ids are allocated strictly increasing, starting at 1.
type TaskId uint64

func (id TaskId) String() string { return strconv.FormatUint(uint64(id), 10) }

func (id TaskId) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}

func BytesToTaskId(b []byte) TaskId {
	return TaskId(binary.BigEndian.Uint64(b))
}

// Task is an outsourced computation awaiting majority verification.
// Created once; the only later mutation is the Completed flip at resolution.
type Task struct {
	Id         TaskId
	Client     Address
	Descriptor common.Hash // opaque commitment to the computation and its input
	Servers    []Address   // ordered authorized set, len >= MinServers
	Stake      Value       // exact deposit required from each server
	Payment    Value       // escrowed client payment
	Completed  bool
}

// Authorized reports whether server belongs to the task's authorized set.
func (t *Task) Authorized(server Address) bool {
	for _, s := range t.Servers {
		if s == server {
			return true
		}
	}
	return false
}

// MajorityThreshold is the count a result group must strictly exceed to win.
// The denominator is always the full authorized set, not the participants.
func (t *Task) MajorityThreshold() uint32 {
	return uint32(len(t.Servers) / 2)
}

// ServerSubmission is the per (task, server) commit-reveal record.
// State machine: Unset -> Committed -> Revealed, terminal, irreversible.
type ServerSubmission struct {
	Commitment common.Hash
	Committed  bool
	Result     []byte
	Nonce      []byte
	Revealed   bool
}
