package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// The entry point contract recomputes the operation hash on-chain from the
// ABI tuple encoding below, so every word of these encodings has to match
// the contract bit for bit.

var (
	addressTy = mustNewType("address")
	uint256Ty = mustNewType("uint256")
	bytesTy   = mustNewType("bytes")
	bytes32Ty = mustNewType("bytes32")

	// Full tuple: all eleven fields in declared order.
	userOpArgs = abi.Arguments{
		{Name: "sender", Type: addressTy},
		{Name: "nonce", Type: uint256Ty},
		{Name: "initCode", Type: bytesTy},
		{Name: "callData", Type: bytesTy},
		{Name: "callGasLimit", Type: uint256Ty},
		{Name: "verificationGasLimit", Type: uint256Ty},
		{Name: "preVerificationGas", Type: uint256Ty},
		{Name: "maxFeePerGas", Type: uint256Ty},
		{Name: "maxPriorityFeePerGas", Type: uint256Ty},
		{Name: "paymasterAndData", Type: bytesTy},
		{Name: "signature", Type: bytesTy},
	}

	// Signature-commitment tuple: dynamic fields collapsed to their keccak256
	// commitment, signature dropped. A static encoding, ten 32-byte words.
	userOpPackedArgs = abi.Arguments{
		{Name: "sender", Type: addressTy},
		{Name: "nonce", Type: uint256Ty},
		{Name: "initCodeHash", Type: bytes32Ty},
		{Name: "callDataHash", Type: bytes32Ty},
		{Name: "callGasLimit", Type: uint256Ty},
		{Name: "verificationGasLimit", Type: uint256Ty},
		{Name: "preVerificationGas", Type: uint256Ty},
		{Name: "maxFeePerGas", Type: uint256Ty},
		{Name: "maxPriorityFeePerGas", Type: uint256Ty},
		{Name: "paymasterAndDataHash", Type: bytes32Ty},
	}

	// Outer hash binding: inner hash, entry point, chain id.
	userOpHashArgs = abi.Arguments{
		{Name: "userOpHash", Type: bytes32Ty},
		{Name: "entryPoint", Type: addressTy},
		{Name: "chainId", Type: uint256Ty},
	}
)

func mustNewType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %q: %v", t, err))
	}
	return ty
}

// Pack returns the full ABI tuple encoding of the operation, the
// representation handleOps consumes on-chain.
func (op *UserOperation) Pack() ([]byte, error) {
	packed, err := userOpArgs.Pack(
		op.Sender,
		safeBig(op.Nonce),
		[]byte(op.InitCode),
		[]byte(op.CallData),
		safeBig(op.CallGasLimit),
		safeBig(op.VerificationGasLimit),
		safeBig(op.PreVerificationGas),
		safeBig(op.MaxFeePerGas),
		safeBig(op.MaxPriorityFeePerGas),
		[]byte(op.PaymasterAndData),
		[]byte(op.Signature),
	)
	if err != nil {
		return nil, fmt.Errorf("pack user operation: %w", err)
	}
	return packed, nil
}

// PackForSignature returns the signature-commitment encoding: the same tuple
// shape with initCode, callData and paymasterAndData replaced by their
// keccak256 hash and the signature left out. Hashing the dynamic fields makes
// the identifier depend only on their content, never on offset or padding
// words, and bounds the input of the final hash.
func (op *UserOperation) PackForSignature() ([]byte, error) {
	packed, err := userOpPackedArgs.Pack(
		op.Sender,
		safeBig(op.Nonce),
		keccakCommit(op.InitCode),
		keccakCommit(op.CallData),
		safeBig(op.CallGasLimit),
		safeBig(op.VerificationGasLimit),
		safeBig(op.PreVerificationGas),
		safeBig(op.MaxFeePerGas),
		safeBig(op.MaxPriorityFeePerGas),
		keccakCommit(op.PaymasterAndData),
	)
	if err != nil {
		return nil, fmt.Errorf("pack user operation for signature: %w", err)
	}
	return packed, nil
}

// Hash derives the canonical identifier of the operation:
//
//	keccak256(keccak256(packForSignature) || abi(entryPoint) || abi(chainId))
//
// The outer hash binds the signed intent to one verifying contract on one
// chain, so the same operation cannot be replayed elsewhere. Two operations
// differing only in their signature share the same hash.
func (op *UserOperation) Hash(entryPoint common.Address, chainID *big.Int) (UserOperationHash, error) {
	packed, err := op.PackForSignature()
	if err != nil {
		return UserOperationHash{}, err
	}

	var inner [32]byte
	copy(inner[:], crypto.Keccak256(packed))

	bound, err := userOpHashArgs.Pack(inner, entryPoint, safeBig(chainID))
	if err != nil {
		return UserOperationHash{}, fmt.Errorf("pack user operation hash: %w", err)
	}

	return UserOperationHashFromSlice(crypto.Keccak256(bound)), nil
}

func keccakCommit(data []byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(data))
	return out
}
