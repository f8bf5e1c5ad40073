package domain

// CallType is the opcode family of an internal call frame.
type CallType string

const (
	CallTypeCall         CallType = "CALL"
	CallTypeDelegateCall CallType = "DELEGATECALL"
	CallTypeStaticCall   CallType = "STATICCALL"
	CallTypeCreate       CallType = "CREATE"
	CallTypeCreate2      CallType = "CREATE2"
	CallTypeSelfDestruct CallType = "SELFDESTRUCT"
)

// InternalTransaction is a nested call frame recovered from a trace.
// TraceAddress is the dot-joined path of child indexes from the root
// frame, e.g. "0.2.1"; the root frame itself uses "".
type InternalTransaction struct {
	TxHash       string
	BlockNumber  uint64
	TraceAddress string
	Type         CallType
	From         string
	To           string
	Value        string
	Gas          uint64
	GasUsed      uint64
	Error        string
}

// IsCreation reports whether the frame deployed a contract.
func (it InternalTransaction) IsCreation() bool {
	return it.Type == CallTypeCreate || it.Type == CallTypeCreate2
}
