// Package report delivers the daemon's status/event channel: newline
// terminated, human-readable lines for measurements, sensor errors, relay
// transitions and configuration notices. The format is an opaque sink for
// downstream consumers, not machine-parsed.
// Implementations: MQTT broker, serial console (host UART), fake for tests.
package report

// Reporter is the status line sink. Callers pass lines without the
// trailing newline; implementations add their own framing.
type Reporter interface {
	// Report delivers one status line. Failures must not crash the
	// control loop; callers log and continue.
	Report(line string) error

	// Close releases the underlying transport.
	Close() error
}

// Multi fans each line out to several reporters. Report returns the first
// delivery error but still attempts every sink.
type Multi []Reporter

// Report delivers the line to every sink.
func (m Multi) Report(line string) error {
	var first error
	for _, r := range m {
		if err := r.Report(line); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every sink.
func (m Multi) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
