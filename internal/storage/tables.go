package storage

import (
	"encoding/binary"

	"github.com/vouchsafe/vouchsafe/internal/db"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

const (
	// taskTable stores task records. Key: TaskId, value: types.Task.
	taskTable db.TableName = "Tasks"

	// submissionTable stores commit-reveal records.
	// Key: TaskId || server address, value: types.ServerSubmission.
	submissionTable db.TableName = "Submissions"

	// escrowTable stores the escrowed balance backing each task.
	// Key: TaskId, value: types.Value.
	escrowTable db.TableName = "Escrow"

	// accountTable stores settled per-participant balances (the stand-in
	// payment rail). Key: address, value: types.Value.
	accountTable db.TableName = "Accounts"

	// eventTable is the append-only journal. Key: TaskId || sequence number,
	// value: types.Event.
	eventTable db.TableName = "Events"

	// sequenceTable holds monotonic counters (task ids, per-task event
	// sequence numbers).
	sequenceTable db.TableName = "Sequences"
)

var taskIdCounterKey = []byte("lastTaskId")

func submissionKey(id types.TaskId, server types.Address) []byte {
	return append(id.Bytes(), server.Bytes()...)
}

func eventKey(id types.TaskId, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(id.Bytes(), seq)
}

func eventSeqCounterKey(id types.TaskId) []byte {
	return append([]byte("eventSeq:"), id.Bytes()...)
}
