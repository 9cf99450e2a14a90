package gpio

// FakeOutput records every write for test assertions.
type FakeOutput struct {
	// LEDWrites contains every value passed to SetLED, in order.
	LEDWrites []bool

	// RelayWrites contains every value passed to SetRelay, in order.
	RelayWrites []int

	// LEDError, if set, is returned by SetLED.
	LEDError error

	// RelayError, if set, is returned by SetRelay.
	RelayError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutput creates a FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// SetLED records the LED value.
func (f *FakeOutput) SetLED(on bool) error {
	if f.LEDError != nil {
		return f.LEDError
	}
	f.LEDWrites = append(f.LEDWrites, on)
	return nil
}

// SetRelay records the relay value.
func (f *FakeOutput) SetRelay(value int) error {
	if f.RelayError != nil {
		return f.RelayError
	}
	f.RelayWrites = append(f.RelayWrites, value)
	return nil
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// LastLED returns the most recent LED write, ok=false if none happened.
func (f *FakeOutput) LastLED() (bool, bool) {
	if len(f.LEDWrites) == 0 {
		return false, false
	}
	return f.LEDWrites[len(f.LEDWrites)-1], true
}

// LastRelay returns the most recent relay write, ok=false if none happened.
func (f *FakeOutput) LastRelay() (int, bool) {
	if len(f.RelayWrites) == 0 {
		return 0, false
	}
	return f.RelayWrites[len(f.RelayWrites)-1], true
}

// Reset clears recorded writes.
func (f *FakeOutput) Reset() {
	f.LEDWrites = nil
	f.RelayWrites = nil
	f.Closed = false
	f.LEDError = nil
	f.RelayError = nil
}
