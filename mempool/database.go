package mempool

import (
	"errors"
	"fmt"
	"math/big"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"

	"github.com/da-bao-jian/aa-bundler/metrics"
	"github.com/da-bao-jian/aa-bundler/model"
	"github.com/da-bao-jian/aa-bundler/pkg/logger"
	"github.com/da-bao-jian/aa-bundler/storage"
	"github.com/da-bao-jian/aa-bundler/storage/schema"
)

// DatabaseMempool persists user operations in the embedded storage engine.
// Every call runs inside exactly one storage transaction, so multi-table
// mutations commit or vanish as a unit. The engine's single-writer rule is
// the only serialization; no locking happens at this layer.
type DatabaseMempool struct {
	db      storage.Storage
	logger  sdklogging.Logger
	metrics *metrics.MempoolMetrics
}

// NewDatabaseMempool wraps an open storage engine. Logger and metrics may be
// nil; the pool then runs silent and uninstrumented.
func NewDatabaseMempool(db storage.Storage, log sdklogging.Logger, m *metrics.MempoolMetrics) *DatabaseMempool {
	return &DatabaseMempool{
		db:      db,
		logger:  logger.EnsureLogger(log),
		metrics: m,
	}
}

func (p *DatabaseMempool) Add(op *model.UserOperation, entryPoint common.Address, chainID *big.Int) (model.UserOperationHash, error) {
	hash, err := op.Hash(entryPoint, chainID)
	if err != nil {
		p.metrics.IncOpProcessed("add", "error")
		return model.UserOperationHash{}, fmt.Errorf("derive user operation hash: %w", err)
	}

	data, err := op.ToJSON()
	if err != nil {
		p.metrics.IncOpProcessed("add", "error")
		return model.UserOperationHash{}, fmt.Errorf("encode user operation %s: %w", hash, err)
	}

	err = p.db.Update(func(txn storage.Txn) error {
		if err := txn.Set(schema.UserOpKey(hash), data); err != nil {
			return err
		}
		return txn.Set(schema.SenderKey(op.Sender, hash), data)
	})
	if err != nil {
		p.metrics.IncOpProcessed("add", "error")
		return model.UserOperationHash{}, fmt.Errorf("add user operation %s: %w", hash, err)
	}

	p.metrics.IncOpProcessed("add", "ok")
	p.refreshPoolSize()
	return hash, nil
}

func (p *DatabaseMempool) Get(hash model.UserOperationHash) (*model.UserOperation, error) {
	data, err := p.db.GetKey(schema.UserOpKey(hash))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user operation %s: %w", hash, err)
	}

	op, err := model.UserOperationFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode user operation %s: %w", hash, err)
	}
	return op, nil
}

func (p *DatabaseMempool) GetAllBySender(sender common.Address) []*model.UserOperation {
	items, err := p.db.GetByPrefix(schema.SenderStoragePrefix(sender))
	if err != nil {
		p.degradedRead("get_all_by_sender", err)
		return nil
	}

	ops := make([]*model.UserOperation, 0, len(items))
	for _, item := range items {
		op, err := model.UserOperationFromJSON(item.Value)
		if err != nil {
			p.degradedRead("get_all_by_sender", err)
			return nil
		}
		ops = append(ops, op)
	}
	return ops
}

func (p *DatabaseMempool) GetNumberBySender(sender common.Address) int {
	count, err := p.db.CountKeysByPrefix(schema.SenderStoragePrefix(sender))
	if err != nil {
		p.degradedRead("get_number_by_sender", err)
		return 0
	}
	return int(count)
}

func (p *DatabaseMempool) HasCodeHashes(hash model.UserOperationHash) (bool, error) {
	var found bool
	err := p.db.View(func(txn storage.Txn) error {
		ok, err := txn.HasPrefix(schema.CodeHashStoragePrefix(hash))
		if err != nil {
			return err
		}
		found = ok
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check code hashes for %s: %w", hash, err)
	}
	return found, nil
}

func (p *DatabaseMempool) GetCodeHashes(hash model.UserOperationHash) []model.CodeHash {
	items, err := p.db.GetByPrefix(schema.CodeHashStoragePrefix(hash))
	if err != nil {
		p.degradedRead("get_code_hashes", err)
		return nil
	}

	codeHashes := make([]model.CodeHash, 0, len(items))
	for _, item := range items {
		ch, err := model.CodeHashFromJSON(item.Value)
		if err != nil {
			p.degradedRead("get_code_hashes", err)
			return nil
		}
		codeHashes = append(codeHashes, *ch)
	}
	return codeHashes
}

func (p *DatabaseMempool) SetCodeHashes(hash model.UserOperationHash, codeHashes []model.CodeHash) error {
	err := p.db.Update(func(txn storage.Txn) error {
		// full replace: whatever the previous validation pass recorded is
		// dropped before the new set goes in
		if err := txn.DeleteByPrefix(schema.CodeHashStoragePrefix(hash)); err != nil {
			return err
		}
		for i := range codeHashes {
			data, err := codeHashes[i].ToJSON()
			if err != nil {
				return err
			}
			if err := txn.Set(schema.CodeHashKey(hash, codeHashes[i].Address), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		p.metrics.IncOpProcessed("set_code_hashes", "error")
		return fmt.Errorf("set code hashes for %s: %w", hash, err)
	}

	p.metrics.IncOpProcessed("set_code_hashes", "ok")
	return nil
}

func (p *DatabaseMempool) Remove(hash model.UserOperationHash) error {
	err := p.db.Update(func(txn storage.Txn) error {
		data, err := txn.Get(schema.UserOpKey(hash))
		if errors.Is(err, storage.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		op, err := model.UserOperationFromJSON(data)
		if err != nil {
			return err
		}

		if err := txn.Delete(schema.UserOpKey(hash)); err != nil {
			return err
		}
		if err := txn.Delete(schema.SenderKey(op.Sender, hash)); err != nil {
			return err
		}
		return txn.DeleteByPrefix(schema.CodeHashStoragePrefix(hash))
	})
	if errors.Is(err, ErrNotFound) {
		p.metrics.IncOpProcessed("remove", "not_found")
		return ErrNotFound
	}
	if err != nil {
		p.metrics.IncOpProcessed("remove", "error")
		return fmt.Errorf("remove user operation %s: %w", hash, err)
	}

	p.metrics.IncOpProcessed("remove", "ok")
	p.refreshPoolSize()
	return nil
}

func (p *DatabaseMempool) GetSorted() ([]*model.UserOperation, error) {
	ops, err := p.scanAll()
	if err != nil {
		return nil, fmt.Errorf("get sorted user operations: %w", err)
	}

	sortByPriority(ops)
	return ops, nil
}

func (p *DatabaseMempool) GetAll() []*model.UserOperation {
	ops, err := p.scanAll()
	if err != nil {
		p.degradedRead("get_all", err)
		return nil
	}
	return ops
}

func (p *DatabaseMempool) Clear() error {
	err := p.db.Update(func(txn storage.Txn) error {
		if err := txn.DeleteByPrefix(schema.UserOpStoragePrefix()); err != nil {
			return err
		}
		if err := txn.DeleteByPrefix(schema.SenderTablePrefix()); err != nil {
			return err
		}
		// code hash records go too, otherwise they would be orphaned
		return txn.DeleteByPrefix(schema.CodeHashTablePrefix())
	})
	if err != nil {
		p.metrics.IncOpProcessed("clear", "error")
		return fmt.Errorf("clear mempool: %w", err)
	}

	p.metrics.IncOpProcessed("clear", "ok")
	p.metrics.SetPoolSize(0)
	return nil
}

// scanAll walks the whole primary table in key order.
func (p *DatabaseMempool) scanAll() ([]*model.UserOperation, error) {
	items, err := p.db.GetByPrefix(schema.UserOpStoragePrefix())
	if err != nil {
		return nil, err
	}

	ops := make([]*model.UserOperation, 0, len(items))
	for _, item := range items {
		op, err := model.UserOperationFromJSON(item.Value)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// degradedRead records a read path that returned empty because the engine
// failed. Callers keep working; operators get the signal through logs and
// the degraded-read counter.
func (p *DatabaseMempool) degradedRead(op string, err error) {
	p.logger.Warn("mempool read degraded to empty result", "op", op, "err", err)
	p.metrics.IncDegradedRead(op)
}

func (p *DatabaseMempool) refreshPoolSize() {
	if p.metrics == nil {
		return
	}
	if n, err := p.db.CountKeysByPrefix(schema.UserOpStoragePrefix()); err == nil {
		p.metrics.SetPoolSize(n)
	}
}
