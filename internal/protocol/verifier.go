package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vouchsafe/vouchsafe/common"
	"github.com/vouchsafe/vouchsafe/common/logging"
	"github.com/vouchsafe/vouchsafe/internal/db"
	"github.com/vouchsafe/vouchsafe/internal/storage"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

// Verifier runs the task lifecycle: creation, commit-reveal submissions and
// majority settlement. Every operation is a single read-write transaction;
// concurrent operations on the same task conflict at commit time and are
// re-run from scratch by the retry runner.
type Verifier struct {
	database    db.DB
	retryRunner common.RetryRunner
	logger      zerolog.Logger

	mu        sync.Mutex
	observers []types.Observer
}

// maxTxRetries bounds conflict retries so that pathological contention
// surfaces as an error instead of a livelock. High enough that realistic
// contention on the id counter cannot exhaust it.
const maxTxRetries = 100

func NewVerifier(database db.DB, logger zerolog.Logger) *Verifier {
	limit := common.LimitRetries(maxTxRetries)
	retryRunner := common.NewRetryRunner(
		common.RetryConfig{
			ShouldRetry: func(attemptNumber uint32, err error) bool {
				return errors.Is(err, db.ErrConflict) && limit(attemptNumber, err)
			},
			NextDelay: func(_ uint32) time.Duration {
				delay, err := common.RandomDelay(20*time.Millisecond, 100*time.Millisecond)
				if err != nil {
					logger.Error().Err(err).Msg("failed to generate retry delay")
					return 100 * time.Millisecond
				}
				return delay
			},
		},
		logger,
	)

	return &Verifier{
		database:    database,
		retryRunner: retryRunner,
		logger:      logger,
	}
}

// Subscribe registers an observer for journal entries. Callbacks fire after
// the writing transaction has committed, in journal order.
func (v *Verifier) Subscribe(observer types.Observer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, observer)
}

func (v *Verifier) notify(events []types.Event) {
	v.mu.Lock()
	observers := v.observers
	v.mu.Unlock()

	for _, event := range events {
		for _, observer := range observers {
			observer.OnEvent(event)
		}
	}
}

// CreateTask escrows the client's payment and registers a new task.
func (v *Verifier) CreateTask(
	ctx context.Context,
	client types.Address,
	descriptor common.Hash,
	servers []types.Address,
	stake types.Value,
	payment types.Value,
) (types.TaskId, error) {
	if payment.IsZero() {
		return 0, types.NewError(types.ErrorZeroPayment)
	}
	if len(servers) < types.MinServers {
		return 0, types.NewVerboseError(types.ErrorInsufficientServers,
			"got %d servers, want at least %d", len(servers), types.MinServers)
	}

	var taskId types.TaskId
	err := v.retryRunner.Do(ctx, func(ctx context.Context) error {
		var err error
		taskId, err = v.createTaskImpl(ctx, client, descriptor, servers, stake, payment)
		return err
	})
	if err != nil {
		return 0, err
	}

	v.logger.Info().
		Stringer(logging.FieldTaskId, taskId).
		Stringer(logging.FieldClient, client).
		Stringer(logging.FieldAmount, payment).
		Int("numServers", len(servers)).
		Msg("Task created")
	return taskId, nil
}

func (v *Verifier) createTaskImpl(
	ctx context.Context,
	client types.Address,
	descriptor common.Hash,
	servers []types.Address,
	stake types.Value,
	payment types.Value,
) (types.TaskId, error) {
	tx, err := v.database.CreateRwTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	taskId, err := storage.NextTaskId(tx)
	if err != nil {
		return 0, err
	}

	task := &types.Task{
		Id:         taskId,
		Client:     client,
		Descriptor: descriptor,
		Servers:    append([]types.Address(nil), servers...),
		Stake:      stake,
		Payment:    payment,
	}
	if err := storage.WriteTask(tx, task); err != nil {
		return 0, err
	}
	if err := storage.CreditTaskEscrow(tx, taskId, payment); err != nil {
		return 0, err
	}

	created := types.Event{
		Kind:       types.EventTaskCreated,
		TaskId:     taskId,
		Client:     client,
		Descriptor: descriptor,
		NumServers: uint32(len(servers)),
		Stake:      stake,
	}
	if err := storage.AppendEvent(tx, &created); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	v.notify([]types.Event{created})
	return taskId, nil
}

// Commit records a server's commitment digest and escrows its stake.
// The deposit must equal the task's stake amount exactly.
func (v *Verifier) Commit(
	ctx context.Context,
	taskId types.TaskId,
	server types.Address,
	commitment common.Hash,
	stakeValue types.Value,
) error {
	err := v.retryRunner.Do(ctx, func(ctx context.Context) error {
		return v.commitImpl(ctx, taskId, server, commitment, stakeValue)
	})
	if err != nil {
		return err
	}

	v.logger.Info().
		Stringer(logging.FieldTaskId, taskId).
		Stringer(logging.FieldServer, server).
		Stringer(logging.FieldCommitment, commitment).
		Msg("Result committed")
	return nil
}

func (v *Verifier) commitImpl(
	ctx context.Context,
	taskId types.TaskId,
	server types.Address,
	commitment common.Hash,
	stakeValue types.Value,
) error {
	tx, err := v.database.CreateRwTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	task, err := storage.ReadTask(tx, taskId)
	if errors.Is(err, storage.ErrTaskNotFound) {
		return types.NewVerboseError(types.ErrorTaskNotActive, "taskId=%s", taskId)
	}
	if err != nil {
		return err
	}
	if task.Completed {
		return types.NewVerboseError(types.ErrorTaskNotActive, "taskId=%s is completed", taskId)
	}
	if !task.Authorized(server) {
		return types.NewVerboseError(types.ErrorUnauthorized, "server=%s", server)
	}
	if !stakeValue.Eq(task.Stake) {
		return types.NewVerboseError(types.ErrorInvalidDeposit,
			"got %s, want exactly %s", stakeValue, task.Stake)
	}

	sub, err := storage.ReadSubmission(tx, taskId, server)
	if err != nil {
		return err
	}
	if sub.Committed {
		return types.NewVerboseError(types.ErrorAlreadyCommitted, "server=%s", server)
	}

	sub.Commitment = commitment
	sub.Committed = true
	if err := storage.WriteSubmission(tx, taskId, server, sub); err != nil {
		return err
	}
	if err := storage.CreditTaskEscrow(tx, taskId, stakeValue); err != nil {
		return err
	}

	committed := types.Event{
		Kind:       types.EventResultCommitted,
		TaskId:     taskId,
		Server:     server,
		Commitment: commitment,
	}
	if err := storage.AppendEvent(tx, &committed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	v.notify([]types.Event{committed})
	return nil
}

// Reveal discloses a server's plaintext result and nonce. The recomputed
// commitment must match the stored one bit for bit.
func (v *Verifier) Reveal(
	ctx context.Context,
	taskId types.TaskId,
	server types.Address,
	result []byte,
	nonce []byte,
) error {
	err := v.retryRunner.Do(ctx, func(ctx context.Context) error {
		return v.revealImpl(ctx, taskId, server, result, nonce)
	})
	if err != nil {
		return err
	}

	v.logger.Info().
		Stringer(logging.FieldTaskId, taskId).
		Stringer(logging.FieldServer, server).
		Stringer(logging.FieldResultHash, VoteHash(result)).
		Msg("Result revealed")
	return nil
}

func (v *Verifier) revealImpl(
	ctx context.Context,
	taskId types.TaskId,
	server types.Address,
	result []byte,
	nonce []byte,
) error {
	tx, err := v.database.CreateRwTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	task, err := storage.ReadTask(tx, taskId)
	if errors.Is(err, storage.ErrTaskNotFound) {
		// A missing task has an empty authorized set, so nobody may reveal.
		return types.NewVerboseError(types.ErrorUnauthorized, "taskId=%s", taskId)
	}
	if err != nil {
		return err
	}
	if task.Completed {
		return types.NewVerboseError(types.ErrorTaskCompleted, "taskId=%s", taskId)
	}
	if !task.Authorized(server) {
		return types.NewVerboseError(types.ErrorUnauthorized, "server=%s", server)
	}

	sub, err := storage.ReadSubmission(tx, taskId, server)
	if err != nil {
		return err
	}
	if !sub.Committed {
		return types.NewVerboseError(types.ErrorNotCommitted, "server=%s", server)
	}
	if sub.Revealed {
		return types.NewVerboseError(types.ErrorAlreadyRevealed, "server=%s", server)
	}
	if ComputeCommitment(result, nonce, server) != sub.Commitment {
		return types.NewVerboseError(types.ErrorCommitmentMismatch, "server=%s", server)
	}

	sub.Result = append([]byte(nil), result...)
	sub.Nonce = append([]byte(nil), nonce...)
	sub.Revealed = true
	if err := storage.WriteSubmission(tx, taskId, server, sub); err != nil {
		return err
	}

	revealed := types.Event{
		Kind:   types.EventResultRevealed,
		TaskId: taskId,
		Server: server,
	}
	if err := storage.AppendEvent(tx, &revealed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	v.notify([]types.Event{revealed})
	return nil
}

// GetTask returns the stored task record.
func (v *Verifier) GetTask(ctx context.Context, taskId types.TaskId) (*types.Task, error) {
	tx, err := v.database.CreateRoTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return storage.ReadTask(tx, taskId)
}

// GetSubmission returns the commit-reveal record for (task, server).
func (v *Verifier) GetSubmission(
	ctx context.Context, taskId types.TaskId, server types.Address,
) (*types.ServerSubmission, error) {
	tx, err := v.database.CreateRoTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return storage.ReadSubmission(tx, taskId, server)
}

// Events returns the task's journal in append order.
func (v *Verifier) Events(ctx context.Context, taskId types.TaskId) ([]types.Event, error) {
	tx, err := v.database.CreateRoTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// An unknown task and a task with an empty journal are different answers.
	exists, err := storage.TaskExists(tx, taskId)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: taskId=%s", storage.ErrTaskNotFound, taskId)
	}
	return storage.ReadEvents(tx, taskId)
}

// EscrowBalance returns the funds currently escrowed for the task.
func (v *Verifier) EscrowBalance(ctx context.Context, taskId types.TaskId) (types.Value, error) {
	tx, err := v.database.CreateRoTx(ctx)
	if err != nil {
		return types.Zero(), err
	}
	defer tx.Rollback()
	return storage.TaskEscrowBalance(tx, taskId)
}

// AccountBalance returns a participant's settled balance.
func (v *Verifier) AccountBalance(ctx context.Context, addr types.Address) (types.Value, error) {
	tx, err := v.database.CreateRoTx(ctx)
	if err != nil {
		return types.Zero(), err
	}
	defer tx.Rollback()
	return storage.AccountBalance(tx, addr)
}
