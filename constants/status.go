package constants

// ItemStatus is the outcome tag stored on every progress log entry.
type ItemStatus string

// Stable values (store these exact strings in the log).
const (
	StatusOK    ItemStatus = "ok"    // record produced and buffered for output
	StatusError ItemStatus = "error" // download, OCR, or review failure; retried next run
)

// DefaultBatchSize is the number of records buffered before an output flush.
const DefaultBatchSize = 25
