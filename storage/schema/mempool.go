// Package schema defines the storage key layout of the mempool.
//
// The engine has no named tables, so each table is a key prefix:
//
//	u:<ophash>           user operation by hash (primary)
//	s:<sender>:<ophash>  user operation by sender (multi-value index)
//	c:<ophash>:<address> code hash records by operation (multi-value index)
//
// Segments are fixed-width lowercase hex, so lexicographic key order equals
// big-endian byte order and prefix scans enumerate a whole "table" or one
// key's value set.
package schema

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/da-bao-jian/aa-bundler/model"
)

const (
	userOpPrefix   = "u:"
	senderPrefix   = "s:"
	codeHashPrefix = "c:"

	hashHexLen = 2 * common.HashLength
	addrHexLen = 2 * common.AddressLength
)

// UserOpKey constructs the primary table key for the given operation hash
func UserOpKey(hash model.UserOperationHash) []byte {
	return []byte(fmt.Sprintf("%s%s", userOpPrefix, hashHex(hash)))
}

// UserOpStoragePrefix returns the storage prefix covering the whole primary table
func UserOpStoragePrefix() []byte {
	return []byte(userOpPrefix)
}

// SenderTablePrefix returns the storage prefix covering the whole sender index
func SenderTablePrefix() []byte {
	return []byte(senderPrefix)
}

// CodeHashTablePrefix returns the storage prefix covering the whole code-hash index
func CodeHashTablePrefix() []byte {
	return []byte(codeHashPrefix)
}

// SenderKey constructs the sender index key for one operation of one sender
func SenderKey(sender common.Address, hash model.UserOperationHash) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", senderPrefix, addrHex(sender), hashHex(hash)))
}

// SenderStoragePrefix returns the storage prefix covering every operation of a sender
func SenderStoragePrefix(sender common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:", senderPrefix, addrHex(sender)))
}

// CodeHashKey constructs the code-hash index key for one contract touched by an operation
func CodeHashKey(hash model.UserOperationHash, addr common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", codeHashPrefix, hashHex(hash), addrHex(addr)))
}

// CodeHashStoragePrefix returns the storage prefix covering every code hash record of an operation
func CodeHashStoragePrefix(hash model.UserOperationHash) []byte {
	return []byte(fmt.Sprintf("%s%s:", codeHashPrefix, hashHex(hash)))
}

// UserOpHashFromKey recovers the operation hash from a primary table key
func UserOpHashFromKey(key []byte) (model.UserOperationHash, error) {
	if len(key) != len(userOpPrefix)+hashHexLen || string(key[:len(userOpPrefix)]) != userOpPrefix {
		return model.UserOperationHash{}, fmt.Errorf("malformed user operation key %q", key)
	}
	return model.UserOperationHashFromSlice(common.FromHex(string(key[len(userOpPrefix):]))), nil
}

// UserOpHashFromSenderKey recovers the operation hash from a sender index key
func UserOpHashFromSenderKey(key []byte) (model.UserOperationHash, error) {
	want := len(senderPrefix) + addrHexLen + 1 + hashHexLen
	if len(key) != want || string(key[:len(senderPrefix)]) != senderPrefix {
		return model.UserOperationHash{}, fmt.Errorf("malformed sender index key %q", key)
	}
	return model.UserOperationHashFromSlice(common.FromHex(string(key[want-hashHexLen:]))), nil
}

func hashHex(hash model.UserOperationHash) string {
	return common.Bytes2Hex(hash.Bytes())
}

func addrHex(addr common.Address) string {
	return common.Bytes2Hex(addr.Bytes())
}
