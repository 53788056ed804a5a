// Package mempool holds user operations that passed validation and are
// waiting to be bundled into a transaction. Operations are keyed by their
// canonical hash; a sender index and a code-hash index hang off the primary
// table and are kept consistent with it transactionally.
package mempool

import (
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/da-bao-jian/aa-bundler/model"
)

// ErrNotFound is returned by Remove when no operation exists for the hash.
// It is an expected outcome, not a storage failure.
var ErrNotFound = errors.New("user operation not found")

// Mempool is the capability set the bundler and the RPC layer depend on.
// DatabaseMempool is the durable implementation; MemoryMempool backs tests
// and embedded use.
type Mempool interface {
	// Add derives the operation hash against the entry point and chain id,
	// persists the operation and indexes it by sender. The returned hash is
	// the primary key for every later call.
	Add(op *model.UserOperation, entryPoint common.Address, chainID *big.Int) (model.UserOperationHash, error)

	// Get returns the operation for the hash, or nil when absent.
	Get(hash model.UserOperationHash) (*model.UserOperation, error)

	// GetAllBySender returns every pending operation of a sender. A storage
	// failure degrades to an empty result.
	GetAllBySender(sender common.Address) []*model.UserOperation

	// GetNumberBySender returns how many operations a sender has pending.
	GetNumberBySender(sender common.Address) int

	// HasCodeHashes reports whether code hash records exist for the hash.
	HasCodeHashes(hash model.UserOperationHash) (bool, error)

	// GetCodeHashes returns the code hash records for the hash, empty if
	// none. A storage failure degrades to an empty result.
	GetCodeHashes(hash model.UserOperationHash) []model.CodeHash

	// SetCodeHashes replaces the whole code hash set of the hash.
	SetCodeHashes(hash model.UserOperationHash, codeHashes []model.CodeHash) error

	// Remove deletes the operation from the primary table and both indexes
	// atomically. Returns ErrNotFound when the hash is absent.
	Remove(hash model.UserOperationHash) error

	// GetSorted returns every pending operation ordered by inclusion
	// priority: max priority fee descending, nonce ascending within equal
	// fees.
	GetSorted() ([]*model.UserOperation, error)

	// GetAll returns every pending operation in storage order. A storage
	// failure degrades to an empty result.
	GetAll() []*model.UserOperation

	// Clear empties the pool, including the code hash records.
	Clear() error
}

// sortByPriority orders operations for bundling: higher priority fee first
// because it pays better, lower nonce first among equal fees because a
// sender's operations must execute in nonce order.
func sortByPriority(ops []*model.UserOperation) {
	sort.Slice(ops, func(i, j int) bool {
		if c := safeBig(ops[i].MaxPriorityFeePerGas).Cmp(safeBig(ops[j].MaxPriorityFeePerGas)); c != 0 {
			return c > 0
		}
		return safeBig(ops[i].Nonce).Cmp(safeBig(ops[j].Nonce)) < 0
	})
}

func safeBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
