package report

// Fake records reported lines for test assertions.
type Fake struct {
	// Lines contains every reported line, in order.
	Lines []string

	// ReportError, if set, is returned by Report.
	ReportError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFake creates a Fake reporter.
func NewFake() *Fake {
	return &Fake{}
}

// Report records the line.
func (f *Fake) Report(line string) error {
	if f.ReportError != nil {
		return f.ReportError
	}
	f.Lines = append(f.Lines, line)
	return nil
}

// Close marks the reporter as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded lines.
func (f *Fake) Reset() {
	f.Lines = nil
	f.Closed = false
	f.ReportError = nil
}
