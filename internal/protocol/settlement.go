package protocol

import (
	"context"
	"errors"

	"github.com/vouchsafe/vouchsafe/common/logging"
	"github.com/vouchsafe/vouchsafe/internal/db"
	"github.com/vouchsafe/vouchsafe/internal/storage"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

// Resolve settles the task: tallies revealed results and disburses the
// escrow according to the verdict. Only the task's client may call it, and
// only once. The completion flip and every transfer happen in one
// transaction, so a failed transfer leaves the task unresolved and
// retryable with nothing paid out.
func (v *Verifier) Resolve(ctx context.Context, taskId types.TaskId, caller types.Address) (Verdict, error) {
	var verdict Verdict
	err := v.retryRunner.Do(ctx, func(ctx context.Context) error {
		var err error
		verdict, err = v.resolveImpl(ctx, taskId, caller)
		return err
	})
	if err != nil {
		return Verdict{}, err
	}

	v.logger.Info().
		Stringer(logging.FieldTaskId, taskId).
		Bool("majorityReached", verdict.MajorityReached).
		Uint32("majorityCount", verdict.MajorityCount).
		Msg("Task resolved")
	return verdict, nil
}

func (v *Verifier) resolveImpl(ctx context.Context, taskId types.TaskId, caller types.Address) (Verdict, error) {
	tx, err := v.database.CreateRwTx(ctx)
	if err != nil {
		return Verdict{}, err
	}
	defer tx.Rollback()

	task, err := storage.ReadTask(tx, taskId)
	if errors.Is(err, storage.ErrTaskNotFound) {
		return Verdict{}, types.NewVerboseError(types.ErrorTaskNotActive, "taskId=%s", taskId)
	}
	if err != nil {
		return Verdict{}, err
	}
	if !task.Client.Equal(caller) {
		return Verdict{}, types.NewVerboseError(types.ErrorUnauthorized,
			"caller=%s, client=%s", caller, task.Client)
	}
	if task.Completed {
		return Verdict{}, types.NewVerboseError(types.ErrorTaskCompleted, "taskId=%s", taskId)
	}
	if len(task.Servers) < types.MinServers {
		return Verdict{}, types.NewVerboseError(types.ErrorInsufficientServers,
			"task has %d servers", len(task.Servers))
	}

	// The flip is written before disbursement; it only survives if the whole
	// transaction, transfers included, commits.
	task.Completed = true
	if err := storage.WriteTask(tx, task); err != nil {
		return Verdict{}, err
	}

	submissions, err := storage.ReadSubmissions(tx, task)
	if err != nil {
		return Verdict{}, err
	}
	verdict := Tally(task, submissions)

	events := make([]types.Event, 0, len(task.Servers)+1)
	events = append(events, types.Event{
		Kind:            types.EventTaskResolved,
		TaskId:          taskId,
		MajorityReached: verdict.MajorityReached,
		MajorityHash:    verdict.MajorityHash,
		MajorityCount:   verdict.MajorityCount,
	})

	if verdict.MajorityReached {
		payouts, err := v.disburseMajority(tx, task, submissions, verdict)
		if err != nil {
			return Verdict{}, err
		}
		events = append(events, payouts...)
	} else {
		refunds, err := v.refundNoMajority(tx, task)
		if err != nil {
			return Verdict{}, err
		}
		events = append(events, refunds...)
	}

	for i := range events {
		if err := storage.AppendEvent(tx, &events[i]); err != nil {
			return Verdict{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Verdict{}, err
	}

	v.notify(events)
	return verdict, nil
}

// disburseMajority pays stake + floor(payment / majorityCount) to every
// majority server, records a forfeit for everyone else, then sweeps the
// remaining escrow (division remainder plus forfeited stakes) to the client.
func (v *Verifier) disburseMajority(
	tx db.RwTx, task *types.Task, submissions []*types.ServerSubmission, verdict Verdict,
) ([]types.Event, error) {
	reward := task.Payment.Div64(uint64(verdict.MajorityCount))
	payout := task.Stake.Add(reward)

	events := make([]types.Event, 0, len(task.Servers)+1)
	for i, server := range task.Servers {
		sub := submissions[i]
		if sub.Revealed && VoteHash(sub.Result) == verdict.MajorityHash {
			if err := storage.TransferFromEscrow(tx, task.Id, server, payout); err != nil {
				return nil, err
			}
			events = append(events, types.Event{
				Kind:   types.EventServerReward,
				TaskId: task.Id,
				Server: server,
				Amount: payout,
			})
			continue
		}

		// Minority revealer, committed-but-silent or absent: no payment, and
		// any deposited stake stays in escrow for the client sweep below.
		events = append(events, types.Event{
			Kind:   types.EventServerForfeit,
			TaskId: task.Id,
			Server: server,
			Stake:  task.Stake,
		})
	}

	remaining, err := storage.TaskEscrowBalance(tx, task.Id)
	if err != nil {
		return nil, err
	}
	if !remaining.IsZero() {
		if err := storage.TransferFromEscrow(tx, task.Id, task.Client, remaining); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// refundNoMajority returns exactly the client payment. Deposited stakes stay
// in the task's escrow and are disbursed to no one; that stranding is
// deliberate and must not be redirected.
func (v *Verifier) refundNoMajority(tx db.RwTx, task *types.Task) ([]types.Event, error) {
	if err := storage.TransferFromEscrow(tx, task.Id, task.Client, task.Payment); err != nil {
		return nil, err
	}

	events := make([]types.Event, 0, len(task.Servers))
	for _, server := range task.Servers {
		events = append(events, types.Event{
			Kind:   types.EventServerForfeit,
			TaskId: task.Id,
			Server: server,
			Stake:  task.Stake,
		})
	}
	return events, nil
}
