package model

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testEntryPoint = common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789")
	testChainID    = big.NewInt(80001)
)

func simpleOp() *UserOperation {
	return &UserOperation{
		Sender:               common.Address{},
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

func TestUserOperationPack(t *testing.T) {
	op := simpleOp()
	op.Signature = hexutil.MustDecode("0x7cb39607585dee8e297d0d7a669ad8c5e43975220b6773c10a138deadbc8ec864981de4b9b3c735288a217115fb33f8326a61ddabc60a534e3b5536515c70f931c")
	op.Sender = common.HexToAddress("0x9c5754De1443984659E1b3a8d1931D83475ba29C")
	op.CallGasLimit = big.NewInt(200000)
	op.MaxFeePerGas = big.NewInt(3000000000)

	packed, err := op.Pack()
	require.NoError(t, err)
	assert.Equal(t,
		"0x0000000000000000000000009c5754de1443984659e1b3a8d1931d83475ba29c0000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000016000000000000000000000000000000000000000000000000000000000000001800000000000000000000000000000000000000000000000000000000000030d4000000000000000000000000000000000000000000000000000000000000186a0000000000000000000000000000000000000000000000000000000000000520800000000000000000000000000000000000000000000000000000000b2d05e00000000000000000000000000000000000000000000000000000000003b9aca0000000000000000000000000000000000000000000000000000000000000001a000000000000000000000000000000000000000000000000000000000000001c000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000417cb39607585dee8e297d0d7a669ad8c5e43975220b6773c10a138deadbc8ec864981de4b9b3c735288a217115fb33f8326a61ddabc60a534e3b5536515c70f931c00000000000000000000000000000000000000000000000000000000000000",
		hexutil.Encode(packed))
}

func TestUserOperationPackEmptyFields(t *testing.T) {
	packed, err := simpleOp().Pack()
	require.NoError(t, err)
	assert.Equal(t,
		"0x0000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000001600000000000000000000000000000000000000000000000000000000000000180000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000186a000000000000000000000000000000000000000000000000000000000000052080000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000003b9aca0000000000000000000000000000000000000000000000000000000000000001a000000000000000000000000000000000000000000000000000000000000001c00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000",
		hexutil.Encode(packed))
}

func TestUserOperationPackForSignature(t *testing.T) {
	packed, err := simpleOp().PackForSignature()
	require.NoError(t, err)
	assert.Equal(t,
		"0x00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000186a000000000000000000000000000000000000000000000000000000000000052080000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000003b9aca00c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hexutil.Encode(packed))

	op := &UserOperation{
		Sender:               common.HexToAddress("0x9c5754De1443984659E1b3a8d1931D83475ba29C"),
		Nonce:                big.NewInt(1),
		InitCode:             hexutil.Bytes{},
		CallData:             hexutil.MustDecode("0xb61d27f60000000000000000000000009c5754de1443984659e1b3a8d1931d83475ba29c00000000000000000000000000000000000000000000000000005af3107a400000000000000000000000000000000000000000000000000000000000000000600000000000000000000000000000000000000000000000000000000000000000"),
		CallGasLimit:         big.NewInt(33100),
		VerificationGasLimit: big.NewInt(60624),
		PreVerificationGas:   big.NewInt(44056),
		MaxFeePerGas:         big.NewInt(1695000030),
		MaxPriorityFeePerGas: big.NewInt(1695000000),
		PaymasterAndData:     hexutil.Bytes{},
		Signature:            hexutil.MustDecode("0x37540ca4f91a9f08993ba4ebd4b7473902f69864c98951f9db8cb47b78764c1a13ad46894a96dc0cad68f9207e49b4dbb897f25f47f040cec2a636a8201c1cd71b"),
	}
	packed, err = op.PackForSignature()
	require.NoError(t, err)
	assert.Equal(t,
		"0x0000000000000000000000009c5754de1443984659e1b3a8d1931d83475ba29c0000000000000000000000000000000000000000000000000000000000000001c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470f7def7aeb687d6992b466243b713223689982cefca0f91a1f5c5f60adb532b93000000000000000000000000000000000000000000000000000000000000814c000000000000000000000000000000000000000000000000000000000000ecd0000000000000000000000000000000000000000000000000000000000000ac18000000000000000000000000000000000000000000000000000000006507a5de000000000000000000000000000000000000000000000000000000006507a5c0c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hexutil.Encode(packed))
}

func TestUserOperationHash(t *testing.T) {
	hash, err := simpleOp().Hash(testEntryPoint, testChainID)
	require.NoError(t, err)
	assert.Equal(t, "0x95418c07086df02ff6bc9e8bdc150b380cb761beecc098630440bcec6e862702", hash.Hex())

	op := &UserOperation{
		Sender:               common.HexToAddress("0x9c5754De1443984659E1b3a8d1931D83475ba29C"),
		Nonce:                big.NewInt(0),
		InitCode:             hexutil.MustDecode("0x9406cc6185a346906296840746125a0e449764545fbfb9cf000000000000000000000000ce0fefa6f7979c4c9b5373e0f5105b7259092c6d0000000000000000000000000000000000000000000000000000000000000000"),
		CallData:             hexutil.MustDecode("0xb61d27f60000000000000000000000009c5754de1443984659e1b3a8d1931d83475ba29c00000000000000000000000000000000000000000000000000005af3107a400000000000000000000000000000000000000000000000000000000000000000600000000000000000000000000000000000000000000000000000000000000000"),
		CallGasLimit:         big.NewInt(33100),
		VerificationGasLimit: big.NewInt(361460),
		PreVerificationGas:   big.NewInt(44980),
		MaxFeePerGas:         big.NewInt(1695000030),
		MaxPriorityFeePerGas: big.NewInt(1695000000),
		PaymasterAndData:     hexutil.Bytes{},
		Signature:            hexutil.MustDecode("0xebfd4657afe1f1c05c1ec65f3f9cc992a3ac083c424454ba61eab93152195e1400d74df01fc9fa53caadcb83a891d478b713016bcc0c64307c1ad3d7ea2e2d921b"),
	}
	hash, err = op.Hash(testEntryPoint, testChainID)
	require.NoError(t, err)
	assert.Equal(t, "0x7c1b8c9df49a9e09ecef0f0fe6841d895850d29820f9a4b494097764085dcd7e", hash.Hex())
}

func TestUserOperationHashIgnoresSignature(t *testing.T) {
	op := simpleOp()
	base, err := op.Hash(testEntryPoint, testChainID)
	require.NoError(t, err)

	op.Signature = hexutil.MustDecode("0xdeadbeef")
	signed, err := op.Hash(testEntryPoint, testChainID)
	require.NoError(t, err)
	assert.Equal(t, base, signed, "signature must not contribute to the identifier")
}

func TestUserOperationHashSensitivity(t *testing.T) {
	base, err := simpleOp().Hash(testEntryPoint, testChainID)
	require.NoError(t, err)

	op := simpleOp()
	op.Nonce = big.NewInt(1)
	changed, err := op.Hash(testEntryPoint, testChainID)
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)

	op = simpleOp()
	op.CallData = hexutil.MustDecode("0x01")
	changed, err = op.Hash(testEntryPoint, testChainID)
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)

	// Same content against a different entry point or chain must not collide.
	changed, err = simpleOp().Hash(common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032"), testChainID)
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)

	changed, err = simpleOp().Hash(testEntryPoint, big.NewInt(1))
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)
}

func TestUserOperationHashNilFieldsAreZero(t *testing.T) {
	sparse := &UserOperation{
		VerificationGasLimit: big.NewInt(100000),
		PreVerificationGas:   big.NewInt(21000),
		MaxPriorityFeePerGas: big.NewInt(1000000000),
	}
	full := simpleOp()

	a, err := sparse.Hash(testEntryPoint, testChainID)
	require.NoError(t, err)
	b, err := full.Hash(testEntryPoint, testChainID)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestUserOperationJSONRoundTrip(t *testing.T) {
	op := simpleOp()
	op.Sender = common.HexToAddress("0x9c5754De1443984659E1b3a8d1931D83475ba29C")
	op.CallData = hexutil.MustDecode("0xb61d27f6")

	data, err := op.ToJSON()
	require.NoError(t, err)

	decoded, err := UserOperationFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}

func TestUserOperationAccessors(t *testing.T) {
	op := simpleOp()
	assert.False(t, op.HasPaymaster())
	assert.Equal(t, common.Address{}, op.PaymasterAddress())
	assert.Equal(t, common.Address{}, op.Factory())

	op.PaymasterAndData = hexutil.MustDecode("0xb985af5f96ef2722dc99aeba573520903b86505e0102")
	assert.True(t, op.HasPaymaster())
	assert.Equal(t, common.HexToAddress("0xB985af5f96EF2722DC99aEBA573520903B86505e"), op.PaymasterAddress())

	op.InitCode = hexutil.MustDecode("0x9406cc6185a346906296840746125a0e44976454ff")
	assert.Equal(t, common.HexToAddress("0x9406CC6185a346906296840746125a0E44976454"), op.Factory())
}
