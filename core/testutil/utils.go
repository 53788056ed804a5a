package testutil

import (
	"crypto/rand"
	"math/big"
	"os"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/da-bao-jian/aa-bundler/model"
	"github.com/da-bao-jian/aa-bundler/storage"
)

// EntryPoint and chain used across tests; the hash vectors in the model
// package are pinned against this pair.
var (
	TestEntryPoint = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	TestChainID    = big.NewInt(80001)
)

// Shortcut to initialize a storage at the given path, panic if we cannot create db
func TestMustDB() storage.Storage {
	dir, err := os.MkdirTemp("", "aatest")
	if err != nil {
		panic(err)
	}

	db, err := storage.NewWithPath(dir)
	if err != nil {
		panic(err)
	}
	return db
}

func GetLogger() sdklogging.Logger {
	logger, err := sdklogging.NewZapLogger("development")
	if err != nil {
		panic(err)
	}
	return logger
}

// RandomAddress returns a fresh random address.
func RandomAddress() common.Address {
	var addr common.Address
	if _, err := rand.Read(addr[:]); err != nil {
		panic(err)
	}
	return addr
}

// RandomUserOp returns a valid user operation with a random sender and the
// default gas fields the original test suite uses.
func RandomUserOp() *model.UserOperation {
	return &model.UserOperation{
		Sender:               RandomAddress(),
		Nonce:                big.NewInt(0),
		InitCode:             hexutil.Bytes{},
		CallData:             hexutil.Bytes{},
		CallGasLimit:         big.NewInt(0),
		VerificationGasLimit: big.NewInt(100000),
		PreVerificationGas:   big.NewInt(21000),
		MaxFeePerGas:         big.NewInt(0),
		MaxPriorityFeePerGas: big.NewInt(1000000000),
		PaymasterAndData:     hexutil.Bytes{},
		Signature:            hexutil.Bytes{},
	}
}
