package rpc

import (
	"github.com/vouchsafe/vouchsafe/common"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

// The vouch_ namespace. Binary result/nonce payloads travel as base64
// strings (encoding/json's default for byte slices); amounts as decimal
// strings; digests and addresses as 0x-hex.

type CreateTaskParams struct {
	Client     types.Address   `json:"client"`
	Descriptor common.Hash     `json:"descriptor"`
	Servers    []types.Address `json:"servers"`
	Stake      types.Value     `json:"stake"`
	Payment    types.Value     `json:"payment"`
}

type CreateTaskResult struct {
	TaskId types.TaskId `json:"taskId"`
}

type CommitResultParams struct {
	TaskId     types.TaskId  `json:"taskId"`
	Server     types.Address `json:"server"`
	Commitment common.Hash   `json:"commitment"`
	Stake      types.Value   `json:"stake"`
}

type RevealResultParams struct {
	TaskId types.TaskId  `json:"taskId"`
	Server types.Address `json:"server"`
	Result []byte        `json:"result"`
	Nonce  []byte        `json:"nonce"`
}

type ResolveTaskParams struct {
	TaskId types.TaskId  `json:"taskId"`
	Caller types.Address `json:"caller"`
}

type ResolveTaskResult struct {
	MajorityReached bool        `json:"majorityReached"`
	MajorityHash    common.Hash `json:"majorityHash"`
	MajorityCount   uint32      `json:"majorityCount"`
	CommittedCount  uint32      `json:"committedCount"`
}

type GetTaskParams struct {
	TaskId types.TaskId `json:"taskId"`
}

type TaskView struct {
	Id         types.TaskId    `json:"id"`
	Client     types.Address   `json:"client"`
	Descriptor common.Hash     `json:"descriptor"`
	Servers    []types.Address `json:"servers"`
	Stake      types.Value     `json:"stake"`
	Payment    types.Value     `json:"payment"`
	Completed  bool            `json:"completed"`
}

type GetEventsParams struct {
	TaskId types.TaskId `json:"taskId"`
}

type GetBalanceParams struct {
	Address types.Address `json:"address"`
}

type GetBalanceResult struct {
	Balance types.Value `json:"balance"`
}
