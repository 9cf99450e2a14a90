package sensor

import "time"

// FakePort is a test double that returns scripted response frames.
// Each trigger write consumes the next entry in Responses; a nil entry
// simulates a sensor that stays silent (read timeout).
type FakePort struct {
	// Responses contains scripted response frames, consumed per trigger.
	Responses [][]byte

	// Written records every byte written to the port.
	Written []byte

	// ChunkSize limits how many bytes a single Read returns, to exercise
	// partial-frame accumulation. Zero means return everything at once.
	ChunkSize int

	// ReadError, if set, is returned by Read.
	ReadError error

	// WriteError, if set, is returned by Write.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool

	// ReadTimeout records the last SetReadTimeout value.
	ReadTimeout time.Duration

	index   int
	pending []byte
}

// NewFakePort creates a FakePort with the given scripted responses.
func NewFakePort(responses [][]byte) *FakePort {
	return &FakePort{Responses: responses}
}

// Write records the trigger and queues the next scripted response.
func (f *FakePort) Write(p []byte) (int, error) {
	if f.WriteError != nil {
		return 0, f.WriteError
	}
	f.Written = append(f.Written, p...)

	if f.index < len(f.Responses) {
		f.pending = f.Responses[f.index]
		f.index++
	} else {
		f.pending = nil
	}
	return len(p), nil
}

// Read returns queued response bytes, or n=0 for a silent sensor, matching
// the real port's expired-timeout behavior.
func (f *FakePort) Read(p []byte) (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.pending) == 0 {
		return 0, nil
	}

	n := len(f.pending)
	if f.ChunkSize > 0 && n > f.ChunkSize {
		n = f.ChunkSize
	}
	n = copy(p, f.pending[:n])
	f.pending = f.pending[n:]
	return n, nil
}

// SetReadTimeout records the requested timeout.
func (f *FakePort) SetReadTimeout(t time.Duration) error {
	f.ReadTimeout = t
	return nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}
