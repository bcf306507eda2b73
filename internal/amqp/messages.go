package amqp

import (
	"encoding/json"
	"time"
)

// Event operations carried on the wire.
const (
	OpSync   = "sync"
	OpDelete = "delete"
)

// TransactionEventMessage is a lightweight change notification. It carries
// only the transaction ID and the operation; the worker fetches the full
// record from the store when it needs one.
type TransactionEventMessage struct {
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEventMessage(id int64, op string) *TransactionEventMessage {
	return &TransactionEventMessage{
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventMessageFromJSON creates a message from JSON bytes
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
