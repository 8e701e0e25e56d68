package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vouchsafe/vouchsafe/common"
	"github.com/vouchsafe/vouchsafe/internal/db"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

type StorageSuite struct {
	suite.Suite
	database db.DB
	ctx      context.Context
}

func TestStorageSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupSuite() {
	database, err := db.NewBadgerDbInMemory()
	s.Require().NoError(err)
	s.database = database
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownSuite() {
	s.database.Close()
}

func (s *StorageSuite) TearDownTest() {
	err := s.database.DropAll()
	s.Require().NoError(err, "failed to clear database in TearDownTest")
}

func (s *StorageSuite) withRwTx(action func(tx db.RwTx)) {
	tx, err := s.database.CreateRwTx(s.ctx)
	s.Require().NoError(err)
	defer tx.Rollback()
	action(tx)
	s.Require().NoError(tx.Commit())
}

func (s *StorageSuite) TestTaskIdsStrictlyIncreasingFromOne() {
	var ids []types.TaskId
	for i := 0; i < 5; i++ {
		s.withRwTx(func(tx db.RwTx) {
			id, err := NextTaskId(tx)
			s.Require().NoError(err)
			ids = append(ids, id)
		})
	}

	s.Require().Len(ids, 5)
	s.EqualValues(1, ids[0])
	for i := 1; i < len(ids); i++ {
		s.Equal(ids[i-1]+1, ids[i])
	}
}

func (s *StorageSuite) TestTaskRoundTrip() {
	task := &types.Task{
		Id:         7,
		Client:     types.HexToAddress("0x1111111111111111111111111111111111111111"),
		Descriptor: common.Keccak256([]byte("compute")),
		Servers: []types.Address{
			types.HexToAddress("0x2222222222222222222222222222222222222222"),
			types.HexToAddress("0x3333333333333333333333333333333333333333"),
			types.HexToAddress("0x4444444444444444444444444444444444444444"),
		},
		Stake:   types.NewValueFromUint64(100),
		Payment: types.NewValueFromUint64(1000),
	}

	s.withRwTx(func(tx db.RwTx) {
		s.Require().NoError(WriteTask(tx, task))
	})

	tx, err := s.database.CreateRoTx(s.ctx)
	s.Require().NoError(err)
	defer tx.Rollback()

	exists, err := TaskExists(tx, task.Id)
	s.Require().NoError(err)
	s.True(exists)

	exists, err = TaskExists(tx, 999)
	s.Require().NoError(err)
	s.False(exists)

	loaded, err := ReadTask(tx, task.Id)
	s.Require().NoError(err)
	s.Equal(task.Client, loaded.Client)
	s.Equal(task.Servers, loaded.Servers)
	s.True(task.Payment.Eq(loaded.Payment))
	s.False(loaded.Completed)

	_, err = ReadTask(tx, 999)
	s.Require().ErrorIs(err, ErrTaskNotFound)
}

func (s *StorageSuite) TestMissingSubmissionIsUnset() {
	server := types.HexToAddress("0x2222222222222222222222222222222222222222")

	tx, err := s.database.CreateRoTx(s.ctx)
	s.Require().NoError(err)
	defer tx.Rollback()

	sub, err := ReadSubmission(tx, 1, server)
	s.Require().NoError(err)
	s.False(sub.Committed)
	s.False(sub.Revealed)
}

func (s *StorageSuite) TestEscrowCreditAndTransfer() {
	const taskId = types.TaskId(3)
	client := types.HexToAddress("0x1111111111111111111111111111111111111111")

	s.withRwTx(func(tx db.RwTx) {
		s.Require().NoError(CreditTaskEscrow(tx, taskId, types.NewValueFromUint64(1000)))
		s.Require().NoError(CreditTaskEscrow(tx, taskId, types.NewValueFromUint64(200)))
	})

	s.withRwTx(func(tx db.RwTx) {
		s.Require().NoError(TransferFromEscrow(tx, taskId, client, types.NewValueFromUint64(700)))

		balance, err := TaskEscrowBalance(tx, taskId)
		s.Require().NoError(err)
		s.True(balance.Eq(types.NewValueFromUint64(500)))

		credit, err := AccountBalance(tx, client)
		s.Require().NoError(err)
		s.True(credit.Eq(types.NewValueFromUint64(700)))
	})
}

func (s *StorageSuite) TestTransferOverdraftFails() {
	const taskId = types.TaskId(4)
	recipient := types.HexToAddress("0x5555555555555555555555555555555555555555")

	tx, err := s.database.CreateRwTx(s.ctx)
	s.Require().NoError(err)
	defer tx.Rollback()

	s.Require().NoError(CreditTaskEscrow(tx, taskId, types.NewValueFromUint64(50)))

	err = TransferFromEscrow(tx, taskId, recipient, types.NewValueFromUint64(51))
	s.Require().Error(err)
	code, ok := types.IsProtocolError(err)
	s.Require().True(ok)
	s.Equal(types.ErrorTransferFailed, code)
}

func (s *StorageSuite) TestJournalAppendOrder() {
	const taskId = types.TaskId(9)

	s.withRwTx(func(tx db.RwTx) {
		for _, kind := range []types.EventKind{
			types.EventTaskCreated,
			types.EventResultCommitted,
			types.EventResultRevealed,
			types.EventTaskResolved,
		} {
			s.Require().NoError(AppendEvent(tx, &types.Event{Kind: kind, TaskId: taskId}))
		}
		// An entry for another task must not leak into taskId's journal.
		s.Require().NoError(AppendEvent(tx, &types.Event{Kind: types.EventTaskCreated, TaskId: 10}))
	})

	tx, err := s.database.CreateRoTx(s.ctx)
	s.Require().NoError(err)
	defer tx.Rollback()

	events, err := ReadEvents(tx, taskId)
	s.Require().NoError(err)
	s.Require().Len(events, 4)
	s.Equal(types.EventTaskCreated, events[0].Kind)
	s.Equal(types.EventResultCommitted, events[1].Kind)
	s.Equal(types.EventResultRevealed, events[2].Kind)
	s.Equal(types.EventTaskResolved, events[3].Kind)
}
