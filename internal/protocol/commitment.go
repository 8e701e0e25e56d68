package protocol

import (
	"github.com/vouchsafe/vouchsafe/common"
	"github.com/vouchsafe/vouchsafe/internal/types"
)

// ComputeCommitment binds a result and nonce to the submitting server:
// Keccak256(result || nonce || server), raw concatenation, no separators.
// Folding the server identity in keeps a server from replaying another's
// revealed value as its own even after observing it.
func ComputeCommitment(result, nonce []byte, server types.Address) common.Hash {
	return common.Keccak256(result, nonce, server.Bytes())
}

// VoteHash is the content hash revealed results are grouped by at tally time.
func VoteHash(result []byte) common.Hash {
	return common.Keccak256(result)
}
