package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vouchsafe/vouchsafe/internal/db"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

// Accessors in this file run inside a caller-owned transaction: a protocol
// operation reads, mutates and writes as one atomic unit, and nothing here
// commits or rolls back on its own.

var ErrTaskNotFound = errors.New("task not found")

// NextTaskId allocates the next task id within tx. Ids start at 1 and are
// strictly increasing: the counter row is read-modify-written in the same
// transaction, so concurrent creations conflict and one of them retries.
func NextTaskId(tx db.RwTx) (types.TaskId, error) {
	var last uint64
	raw, err := tx.Get(sequenceTable, taskIdCounterKey)
	switch {
	case err == nil:
		last = binary.BigEndian.Uint64(raw)
	case errors.Is(err, db.ErrKeyNotFound):
		last = 0
	default:
		return 0, err
	}

	next := last + 1
	if err := tx.Put(sequenceTable, taskIdCounterKey, binary.BigEndian.AppendUint64(nil, next)); err != nil {
		return 0, err
	}
	return types.TaskId(next), nil
}

// TaskExists reports whether a task record is stored under id.
func TaskExists(tx db.RoTx, id types.TaskId) (bool, error) {
	return tx.Exists(taskTable, id.Bytes())
}

func ReadTask(tx db.RoTx, id types.TaskId) (*types.Task, error) {
	raw, err := tx.Get(taskTable, id.Bytes())
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: taskId=%s", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return unmarshallEntry[types.Task](id.Bytes(), raw)
}

func WriteTask(tx db.RwTx, task *types.Task) error {
	value, err := marshallEntry(task)
	if err != nil {
		return fmt.Errorf("%w, taskId=%s", err, task.Id)
	}
	return tx.Put(taskTable, task.Id.Bytes(), value)
}

// ReadSubmission returns the commit-reveal record for (task, server).
// A missing record means the server has not committed yet; the returned
// zero-value submission reflects exactly that.
func ReadSubmission(tx db.RoTx, id types.TaskId, server types.Address) (*types.ServerSubmission, error) {
	key := submissionKey(id, server)
	raw, err := tx.Get(submissionTable, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return &types.ServerSubmission{}, nil
	}
	if err != nil {
		return nil, err
	}
	return unmarshallEntry[types.ServerSubmission](key, raw)
}

func WriteSubmission(tx db.RwTx, id types.TaskId, server types.Address, sub *types.ServerSubmission) error {
	value, err := marshallEntry(sub)
	if err != nil {
		return fmt.Errorf("%w, taskId=%s, server=%s", err, id, server)
	}
	return tx.Put(submissionTable, submissionKey(id, server), value)
}

// ReadSubmissions loads the records for every authorized server of the task,
// in the task's stored server order.
func ReadSubmissions(tx db.RoTx, task *types.Task) ([]*types.ServerSubmission, error) {
	subs := make([]*types.ServerSubmission, len(task.Servers))
	for i, server := range task.Servers {
		sub, err := ReadSubmission(tx, task.Id, server)
		if err != nil {
			return nil, err
		}
		subs[i] = sub
	}
	return subs, nil
}
