package domain

// TxStatus is the receipt outcome of a mined transaction.
type TxStatus int16

const (
	TxStatusFailed  TxStatus = 0
	TxStatusSuccess TxStatus = 1
)

// Transaction is a mined transaction joined with its receipt.
// To is empty for contract creations; ContractAddress carries the
// deployed address in that case.
type Transaction struct {
	Hash            string
	BlockNumber     uint64
	BlockHash       string
	Index           uint
	From            string
	To              string
	ContractAddress string
	Value           string
	Gas             uint64
	GasUsed         uint64
	GasPrice        string
	Nonce           uint64
	InputSize       int
	MethodID        string
	MethodName      string
	Status          TxStatus
	Timestamp       uint64
}

// IsContractCreation reports whether the transaction deployed a contract.
func (t Transaction) IsContractCreation() bool {
	return t.To == "" && t.ContractAddress != ""
}
