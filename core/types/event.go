package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// ReceiptStatus is the outcome of an applied transaction.
type ReceiptStatus string

const (
	ReceiptSuccess ReceiptStatus = "success"
	ReceiptFailed  ReceiptStatus = "failed"
)

// Receipt summarises the result of applying a transaction. Failed receipts
// never carry events because none of the transaction's effects were kept.
type Receipt struct {
	TxHash    []byte        `json:"txHash"`
	Type      TxType        `json:"type"`
	Status    ReceiptStatus `json:"status"`
	Events    []Event       `json:"events,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"errorKind,omitempty"`
	Timestamp int64         `json:"timestamp"`
}
