package base

// Record is the external, host-facing view of a live key: never a
// tombstone, never carrying a timestamp.
type Record struct {
	Key     []byte
	Payload []byte
}
