package common

import (
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"
)

var cryptoPool = sync.Pool{
	New: func() any {
		return sha3.NewLegacyKeccak256()
	},
}

func getKeccak256() hash.Hash {
	h := cryptoPool.Get().(hash.Hash)
	h.Reset()
	return h
}

func returnKeccak256(h hash.Hash) { cryptoPool.Put(h) }

// Keccak256 computes the legacy Keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) Hash {
	h := getKeccak256()
	defer returnKeccak256(h)

	for _, d := range data {
		h.Write(d)
	}

	var res Hash
	h.Sum(res[:0])
	return res
}
