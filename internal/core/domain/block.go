package domain

// Block is a canonical-chain block header plus the fields the explorer
// surfaces directly.
type Block struct {
	Number        uint64
	Hash          string
	ParentHash    string
	Timestamp     uint64
	Miner         string
	GasUsed       uint64
	GasLimit      uint64
	BaseFeePerGas *string
	Size          uint64
	TxCount       int
}
