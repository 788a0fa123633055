package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// GenesisBody is the payload of the first block of every chain
const GenesisBody = "Genesis block"

// Block is a hash-linked ledger entry
type Block struct {
	Hash              string          `json:"hash"`
	Height            uint64          `json:"height"`
	Body              json.RawMessage `json:"body"`
	Time              string          `json:"time"` // unix seconds
	PreviousBlockHash string          `json:"previousBlockHash"`
}

// IsGenesis reports whether the block is the chain's first, which has no star payload
func (b Block) IsGenesis() bool {
	return b.Height == 0 && b.PreviousBlockHash == ""
}

// StarRecord unmarshals the block body
func (b Block) StarRecord() (StarRecord, error) {
	var record StarRecord
	if b.IsGenesis() {
		return record, fmt.Errorf("%w: genesis block has no star", ErrDecode)
	}
	if err := json.Unmarshal(b.Body, &record); err != nil {
		return record, fmt.Errorf("%w: block %d body: %v", ErrDecode, b.Height, err)
	}
	return record, nil
}

// ComputeHash hashes every field but Hash with keccak256
func (b Block) ComputeHash() string {
	unhashed := b
	unhashed.Hash = ""
	data, err := json.Marshal(unhashed)
	if err != nil {
		// only reachable with a hand-built, non-JSON body
		panic(fmt.Sprintf("core: unhashable block %d: %v", b.Height, err))
	}
	return hex.EncodeToString(crypto.Keccak256(data))
}

// NewGenesisBlock creates the first block of a chain
func NewGenesisBlock(now time.Time) Block {
	body, _ := json.Marshal(GenesisBody)
	block := Block{
		Height: 0,
		Body:   body,
		Time:   strconv.FormatInt(now.Unix(), 10),
	}
	block.Hash = block.ComputeHash()
	return block
}

// NewStarBlock links an encoded star record after prev
func NewStarBlock(prev Block, record StarRecord, now time.Time) (Block, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return Block{}, fmt.Errorf("failed to marshal star record: %w", err)
	}
	block := Block{
		Height:            prev.Height + 1,
		Body:              body,
		Time:              strconv.FormatInt(now.Unix(), 10),
		PreviousBlockHash: prev.Hash,
	}
	block.Hash = block.ComputeHash()
	return block, nil
}
