package amqp

import (
	"encoding/json"
	"time"
)

// DatasetReloadedMessage announces that a new cleaned-dataset snapshot exists.
// Consumers fetch the data itself from SQLite; the message only carries the
// generation so a worker can skip stale notifications.
type DatasetReloadedMessage struct {
	Generation   uint64    `json:"generation"`
	Transactions int       `json:"transactions"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewDatasetReloadedMessage(generation uint64, transactions int) *DatasetReloadedMessage {
	return &DatasetReloadedMessage{
		Generation:   generation,
		Transactions: transactions,
		Timestamp:    time.Now(),
	}
}

func (m *DatasetReloadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DatasetReloadedMessageFromJSON(data []byte) (*DatasetReloadedMessage, error) {
	var msg DatasetReloadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
