package mempool

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/da-bao-jian/aa-bundler/model"
)

// MemoryMempool keeps the pool in process memory. It honors the same
// contract as DatabaseMempool and exists so callers can be tested without a
// storage directory.
type MemoryMempool struct {
	mu sync.RWMutex

	ops        map[model.UserOperationHash]*model.UserOperation
	bySender   map[common.Address]map[model.UserOperationHash]struct{}
	codeHashes map[model.UserOperationHash][]model.CodeHash
}

func NewMemoryMempool() *MemoryMempool {
	return &MemoryMempool{
		ops:        make(map[model.UserOperationHash]*model.UserOperation),
		bySender:   make(map[common.Address]map[model.UserOperationHash]struct{}),
		codeHashes: make(map[model.UserOperationHash][]model.CodeHash),
	}
}

func (p *MemoryMempool) Add(op *model.UserOperation, entryPoint common.Address, chainID *big.Int) (model.UserOperationHash, error) {
	hash, err := op.Hash(entryPoint, chainID)
	if err != nil {
		return model.UserOperationHash{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.ops[hash] = op
	if p.bySender[op.Sender] == nil {
		p.bySender[op.Sender] = make(map[model.UserOperationHash]struct{})
	}
	p.bySender[op.Sender][hash] = struct{}{}
	return hash, nil
}

func (p *MemoryMempool) Get(hash model.UserOperationHash) (*model.UserOperation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.ops[hash], nil
}

func (p *MemoryMempool) GetAllBySender(sender common.Address) []*model.UserOperation {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ops := make([]*model.UserOperation, 0, len(p.bySender[sender]))
	for hash := range p.bySender[sender] {
		ops = append(ops, p.ops[hash])
	}
	return ops
}

func (p *MemoryMempool) GetNumberBySender(sender common.Address) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.bySender[sender])
}

func (p *MemoryMempool) HasCodeHashes(hash model.UserOperationHash) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.codeHashes[hash]) > 0, nil
}

func (p *MemoryMempool) GetCodeHashes(hash model.UserOperationHash) []model.CodeHash {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return append([]model.CodeHash(nil), p.codeHashes[hash]...)
}

func (p *MemoryMempool) SetCodeHashes(hash model.UserOperationHash, codeHashes []model.CodeHash) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.codeHashes[hash] = append([]model.CodeHash(nil), codeHashes...)
	return nil
}

func (p *MemoryMempool) Remove(hash model.UserOperationHash) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	op, ok := p.ops[hash]
	if !ok {
		return ErrNotFound
	}

	delete(p.ops, hash)
	delete(p.bySender[op.Sender], hash)
	if len(p.bySender[op.Sender]) == 0 {
		delete(p.bySender, op.Sender)
	}
	delete(p.codeHashes, hash)
	return nil
}

func (p *MemoryMempool) GetSorted() ([]*model.UserOperation, error) {
	p.mu.RLock()
	ops := make([]*model.UserOperation, 0, len(p.ops))
	for _, op := range p.ops {
		ops = append(ops, op)
	}
	p.mu.RUnlock()

	sortByPriority(ops)
	return ops, nil
}

func (p *MemoryMempool) GetAll() []*model.UserOperation {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ops := make([]*model.UserOperation, 0, len(p.ops))
	for _, op := range p.ops {
		ops = append(ops, op)
	}
	return ops
}

func (p *MemoryMempool) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ops = make(map[model.UserOperationHash]*model.UserOperation)
	p.bySender = make(map[common.Address]map[model.UserOperationHash]struct{})
	p.codeHashes = make(map[model.UserOperationHash][]model.CodeHash)
	return nil
}
