package amqp

import (
	"encoding/json"
	"time"
)

// LedgerSyncMessage asks the worker to mirror one ledger snapshot to the
// remote store. It carries only the key and version, the worker reads the
// snapshot body from the local cache.
type LedgerSyncMessage struct {
	Key       string    `json:"key"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(key string, version int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Key:       key,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
