package model

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// CodeHash snapshots the bytecode hash of a contract touched while a user
// operation was simulated. The bundler compares these snapshots against the
// chain right before inclusion to detect bytecode that mutated after
// validation.
type CodeHash struct {
	Address common.Address `json:"address"`
	Hash    common.Hash    `json:"hash"`
}

// ToJSON returns the compact json used to persist the record to storage.
func (c *CodeHash) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

// CodeHashFromJSON decodes a record persisted with ToJSON.
func CodeHashFromJSON(data []byte) (*CodeHash, error) {
	ch := &CodeHash{}
	if err := json.Unmarshal(data, ch); err != nil {
		return nil, err
	}
	return ch, nil
}
