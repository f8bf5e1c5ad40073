package domain

// TransactionLog is a single event log emitted during transaction
// execution. Topics holds at most four entries; Topics[0] is the event
// signature for non-anonymous events.
type TransactionLog struct {
	TxHash      string
	LogIndex    uint
	BlockNumber uint64
	Address     string
	Topics      []string
	Data        string
}

// Topic0 returns the event signature topic, or "" for anonymous events.
func (l TransactionLog) Topic0() string {
	if len(l.Topics) == 0 {
		return ""
	}
	return l.Topics[0]
}
