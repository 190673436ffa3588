package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// EncodeState serializes the aggregate to its persistence document.
func EncodeState(s LedgerState) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return data, nil
}

// DecodeState parses a persistence document and backfills missing shape via
// Normalize. A document that does not parse fails closed: the caller must
// refuse to load rather than continue with partial data.
func DecodeState(data []byte, now time.Time) (LedgerState, error) {
	if len(data) == 0 {
		return LedgerState{}, fmt.Errorf("%w: empty document", ErrCorruptLedger)
	}
	var s LedgerState
	if err := json.Unmarshal(data, &s); err != nil {
		return LedgerState{}, fmt.Errorf("%w: %v", ErrCorruptLedger, err)
	}
	return s.Normalize(now), nil
}
