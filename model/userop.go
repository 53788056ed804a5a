package model

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UserOperation represents an EIP-4337 style transaction for a smart contract
// account. The field order matters: it is the tuple order the entry point
// contract expects when the operation is ABI encoded.
type UserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *big.Int       `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         *big.Int       `json:"callGasLimit"`
	VerificationGasLimit *big.Int       `json:"verificationGasLimit"`
	PreVerificationGas   *big.Int       `json:"preVerificationGas"`
	MaxFeePerGas         *big.Int       `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int       `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

// UserOperationHash is the 32 byte identifier of a user operation, derived
// from its content, the entry point address and the chain id. It is the
// primary key for every mempool lookup.
type UserOperationHash common.Hash

func (h UserOperationHash) Hex() string {
	return common.Hash(h).Hex()
}

func (h UserOperationHash) Bytes() []byte {
	return common.Hash(h).Bytes()
}

func (h UserOperationHash) String() string {
	return h.Hex()
}

func (h UserOperationHash) MarshalText() ([]byte, error) {
	return common.Hash(h).MarshalText()
}

func (h *UserOperationHash) UnmarshalText(input []byte) error {
	return (*common.Hash)(h).UnmarshalText(input)
}

// UserOperationHashFromSlice builds a hash from raw bytes, truncating or
// left-padding the way common.BytesToHash does.
func UserOperationHashFromSlice(b []byte) UserOperationHash {
	return UserOperationHash(common.BytesToHash(b))
}

// Factory extracts the account factory address from InitCode. Returns the
// zero address when the operation does not deploy a new account.
func (op *UserOperation) Factory() common.Address {
	if len(op.InitCode) < common.AddressLength {
		return common.Address{}
	}
	return common.BytesToAddress(op.InitCode[:common.AddressLength])
}

// PaymasterAddress extracts the paymaster address from PaymasterAndData.
// Returns the zero address for self-funded operations.
func (op *UserOperation) PaymasterAddress() common.Address {
	if len(op.PaymasterAndData) < common.AddressLength {
		return common.Address{}
	}
	return common.BytesToAddress(op.PaymasterAndData[:common.AddressLength])
}

// HasPaymaster returns true if the operation is sponsored by a paymaster.
func (op *UserOperation) HasPaymaster() bool {
	return len(op.PaymasterAndData) >= common.AddressLength && op.PaymasterAddress() != (common.Address{})
}

// ToJSON returns the compact json used to persist the operation to storage.
func (op *UserOperation) ToJSON() ([]byte, error) {
	return json.Marshal(op)
}

// UserOperationFromJSON decodes an operation persisted with ToJSON.
func UserOperationFromJSON(data []byte) (*UserOperation, error) {
	op := &UserOperation{}
	if err := json.Unmarshal(data, op); err != nil {
		return nil, err
	}
	return op, nil
}

// safeBig normalizes nil big ints to zero so comparisons and encodings never
// have to branch on nil.
func safeBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
