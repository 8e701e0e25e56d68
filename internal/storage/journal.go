package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vouchsafe/vouchsafe/internal/db"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

// The journal is append-only: entries are written in the same transaction as
// the state change they describe and are never deleted or rewritten.

func nextEventSeq(tx db.RwTx, id types.TaskId) (uint64, error) {
	key := eventSeqCounterKey(id)
	var last uint64
	raw, err := tx.Get(sequenceTable, key)
	switch {
	case err == nil:
		last = binary.BigEndian.Uint64(raw)
	case errors.Is(err, db.ErrKeyNotFound):
		last = 0
	default:
		return 0, err
	}

	next := last + 1
	if err := tx.Put(sequenceTable, key, binary.BigEndian.AppendUint64(nil, next)); err != nil {
		return 0, err
	}
	return next, nil
}

// AppendEvent persists a journal entry for the event's task.
func AppendEvent(tx db.RwTx, event *types.Event) error {
	seq, err := nextEventSeq(tx, event.TaskId)
	if err != nil {
		return err
	}

	value, err := marshallEntry(event)
	if err != nil {
		return fmt.Errorf("%w, taskId=%s, kind=%s", err, event.TaskId, event.Kind)
	}
	return tx.Put(eventTable, eventKey(event.TaskId, seq), value)
}

// ReadEvents returns the task's journal entries in append order.
func ReadEvents(tx db.RoTx, id types.TaskId) ([]types.Event, error) {
	iter, err := tx.Range(eventTable, id.Bytes(), nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var events []types.Event
	for iter.HasNext() {
		key, val, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if types.BytesToTaskId(key[:8]) != id {
			break
		}
		event, err := unmarshallEntry[types.Event](key, val)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, nil
}
