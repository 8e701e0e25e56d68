package storage

import (
	"errors"

	"github.com/vouchsafe/vouchsafe/internal/db"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

// The escrow ledger tracks two kinds of balances: the escrow backing each
// task (client payment plus deposited stakes) and the settled balance of
// each participant account. A task's escrow is only ever drawn down by that
// task's own disbursements; that conservation property is what the tests
// in this package and in protocol assert.

func readValue(tx db.RoTx, table db.TableName, key []byte) (types.Value, error) {
	raw, err := tx.Get(table, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return types.Zero(), nil
	}
	if err != nil {
		return types.Zero(), err
	}
	v, err := unmarshallEntry[types.Value](key, raw)
	if err != nil {
		return types.Zero(), err
	}
	return *v, nil
}

func writeValue(tx db.RwTx, table db.TableName, key []byte, v types.Value) error {
	raw, err := marshallEntry(&v)
	if err != nil {
		return err
	}
	return tx.Put(table, key, raw)
}

// TaskEscrowBalance returns the funds currently held in escrow for the task.
func TaskEscrowBalance(tx db.RoTx, id types.TaskId) (types.Value, error) {
	return readValue(tx, escrowTable, id.Bytes())
}

// CreditTaskEscrow records a deposit (payment or stake) against the task.
func CreditTaskEscrow(tx db.RwTx, id types.TaskId, amount types.Value) error {
	balance, err := TaskEscrowBalance(tx, id)
	if err != nil {
		return err
	}
	return writeValue(tx, escrowTable, id.Bytes(), balance.Add(amount))
}

// AccountBalance returns the settled balance of a participant.
func AccountBalance(tx db.RoTx, addr types.Address) (types.Value, error) {
	return readValue(tx, accountTable, addr.Bytes())
}

// TransferFromEscrow moves amount from the task's escrow to the recipient's
// settled balance. It fails with ErrorTransferFailed if the escrow does not
// hold enough; the caller is expected to abort its whole transaction then.
func TransferFromEscrow(tx db.RwTx, id types.TaskId, recipient types.Address, amount types.Value) error {
	balance, err := TaskEscrowBalance(tx, id)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return types.NewTransferFailedError(recipient, amount)
	}
	if err := writeValue(tx, escrowTable, id.Bytes(), balance.Sub(amount)); err != nil {
		return err
	}

	credit, err := AccountBalance(tx, recipient)
	if err != nil {
		return err
	}
	return writeValue(tx, accountTable, recipient.Bytes(), credit.Add(amount))
}
