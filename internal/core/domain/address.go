package domain

import "time"

// Address is the tracked state of an externally observed account.
// Balance is the authoritative on-chain value re-read at the address's
// last touching block, never a running sum of transfers.
type Address struct {
	Address        string
	Balance        string
	Nonce          uint64
	IsContract     bool
	TxCount        uint64
	FirstSeenBlock uint64
	LastSeenBlock  uint64
	UpdatedAt      time.Time
}
