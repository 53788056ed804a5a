package mempool

import (
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/da-bao-jian/aa-bundler/core/testutil"
	"github.com/da-bao-jian/aa-bundler/metrics"
	"github.com/da-bao-jian/aa-bundler/model"
	"github.com/da-bao-jian/aa-bundler/storage"
)

func TestDatabaseMempoolSurvivesReopen(t *testing.T) {
	db := testutil.TestMustDB()
	path := db.DbPath()
	defer os.RemoveAll(path)

	pool := NewDatabaseMempool(db, nil, nil)

	op := testutil.RandomUserOp()
	hash, err := pool.Add(op, testutil.TestEntryPoint, testutil.TestChainID)
	require.NoError(t, err)
	require.NoError(t, pool.SetCodeHashes(hash, []model.CodeHash{
		{Address: testutil.RandomAddress()},
	}))
	require.NoError(t, db.Close())

	reopened, err := storage.NewWithPath(path)
	require.NoError(t, err)
	defer reopened.Close()

	pool = NewDatabaseMempool(reopened, nil, nil)
	got, err := pool.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, op, got)
	assert.Len(t, pool.GetCodeHashes(hash), 1)
	assert.Equal(t, 1, pool.GetNumberBySender(op.Sender))
}

func TestDatabaseMempoolErrorPaths(t *testing.T) {
	db := testutil.TestMustDB()
	defer os.RemoveAll(db.DbPath())

	reg := prometheus.NewRegistry()
	m := metrics.NewMempoolMetrics(reg)
	pool := NewDatabaseMempool(db, nil, m)

	op := testutil.RandomUserOp()
	hash, err := pool.Add(op, testutil.TestEntryPoint, testutil.TestChainID)
	require.NoError(t, err)

	// a closed engine fails every transaction underneath the pool
	require.NoError(t, db.Close())

	// write paths propagate
	_, err = pool.Add(testutil.RandomUserOp(), testutil.TestEntryPoint, testutil.TestChainID)
	assert.Error(t, err)

	err = pool.SetCodeHashes(hash, nil)
	assert.Error(t, err)

	err = pool.Remove(hash)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "a backend failure must not read as not-found")

	assert.Error(t, pool.Clear())

	_, err = pool.Get(hash)
	assert.Error(t, err)

	_, err = pool.HasCodeHashes(hash)
	assert.Error(t, err)

	_, err = pool.GetSorted()
	assert.Error(t, err)

	// read paths degrade to empty and are counted
	assert.Empty(t, pool.GetAll())
	assert.Empty(t, pool.GetAllBySender(op.Sender))
	assert.Equal(t, 0, pool.GetNumberBySender(op.Sender))
	assert.Empty(t, pool.GetCodeHashes(hash))

	degraded, err := promtestutil.GatherAndCount(reg, "bundler_mempool_degraded_reads_total")
	require.NoError(t, err)
	assert.Greater(t, degraded, 0)
}

func TestDatabaseMempoolSameIntentSameHash(t *testing.T) {
	db := testutil.TestMustDB()
	defer storage.Destroy(db.(*storage.BadgerStorage))

	pool := NewDatabaseMempool(db, nil, nil)

	op := testutil.RandomUserOp()
	first, err := pool.Add(op, testutil.TestEntryPoint, testutil.TestChainID)
	require.NoError(t, err)

	// re-signing the same intent lands on the same primary key
	resigned := *op
	resigned.Signature = []byte{0x01, 0x02}
	second, err := pool.Add(&resigned, testutil.TestEntryPoint, testutil.TestChainID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := pool.Get(first)
	require.NoError(t, err)
	assert.Equal(t, resigned.Signature, got.Signature)
	assert.Len(t, pool.GetAll(), 1)
	assert.Equal(t, 1, pool.GetNumberBySender(op.Sender))
}
