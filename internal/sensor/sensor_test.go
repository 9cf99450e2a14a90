package sensor

import (
	"errors"
	"testing"
	"time"
)

func frame(distance int) []byte {
	return []byte{0xFF, 0xFF, byte(distance >> 8), byte(distance & 0xFF)}
}

func TestReadDistance(t *testing.T) {
	port := NewFakePort([][]byte{frame(120)})
	s := New(port)

	d, err := s.ReadDistance(30, 196)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 120 {
		t.Errorf("distance = %d, want 120", d)
	}

	// One trigger byte per measurement.
	if len(port.Written) != 1 || port.Written[0] != TriggerByte {
		t.Errorf("expected single trigger byte 0x55, got % X", port.Written)
	}
	if port.ReadTimeout != Timeout {
		t.Errorf("read timeout = %v, want %v", port.ReadTimeout, Timeout)
	}
}

func TestReadDistanceBigEndian(t *testing.T) {
	// 0x01F4 = 500 mm
	port := NewFakePort([][]byte{{0xFF, 0xFF, 0x01, 0xF4}})
	s := New(port)

	d, err := s.ReadDistance(0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 500 {
		t.Errorf("distance = %d, want 500", d)
	}
}

func TestReadDistanceChunkedFrame(t *testing.T) {
	// Frame arrives one byte at a time.
	port := NewFakePort([][]byte{frame(146)})
	port.ChunkSize = 1
	s := New(port)

	d, err := s.ReadDistance(30, 196)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 146 {
		t.Errorf("distance = %d, want 146", d)
	}
}

func TestReadDistanceTimeout(t *testing.T) {
	port := NewFakePort([][]byte{nil}) // sensor stays silent
	s := New(port)

	_, err := s.ReadDistance(30, 196)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestReadDistanceBadHeader(t *testing.T) {
	port := NewFakePort([][]byte{{0xFE, 0xFF, 0x00, 0x50}})
	s := New(port)

	_, err := s.ReadDistance(30, 196)
	if !errors.Is(err, ErrBadFrame) {
		t.Errorf("expected ErrBadFrame, got %v", err)
	}
}

func TestReadDistanceOutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		distance int
	}{
		{"below dead zone", 20},
		{"above tank height", 210},
	}

	for _, tt := range tests {
		port := NewFakePort([][]byte{frame(tt.distance)})
		s := New(port)

		_, err := s.ReadDistance(30, 196)
		var oor *OutOfRangeError
		if !errors.As(err, &oor) {
			t.Errorf("%s: expected OutOfRangeError, got %v", tt.name, err)
			continue
		}
		if oor.DistanceMM != tt.distance {
			t.Errorf("%s: DistanceMM = %d, want %d", tt.name, oor.DistanceMM, tt.distance)
		}
	}
}

func TestReadDistanceRangeBoundsInclusive(t *testing.T) {
	for _, d := range []int{30, 196} {
		port := NewFakePort([][]byte{frame(d)})
		s := New(port)

		got, err := s.ReadDistance(30, 196)
		if err != nil {
			t.Errorf("distance %d should be in range, got %v", d, err)
		}
		if got != d {
			t.Errorf("distance = %d, want %d", got, d)
		}
	}
}

func TestReadDistanceWriteError(t *testing.T) {
	port := NewFakePort(nil)
	port.WriteError = errors.New("port gone")
	s := New(port)

	if _, err := s.ReadDistance(30, 196); err == nil {
		t.Error("expected write error to propagate")
	}
}

func TestReadDistancePartialFrameThenSilence(t *testing.T) {
	// Two header bytes and nothing more: must time out, not decode garbage.
	port := NewFakePort([][]byte{{0xFF, 0xFF}})
	s := New(port)

	start := time.Now()
	_, err := s.ReadDistance(30, 196)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	// The fake reports silence immediately; no real waiting happens.
	if elapsed := time.Since(start); elapsed > Timeout {
		t.Errorf("fake read should not block for the full timeout, took %v", elapsed)
	}
}
