package logic

// WaterLevel converts a measured sensor-to-surface distance into a water
// level, clamped at zero for readings deeper than the tank.
func WaterLevel(distanceMM, tankHeightMM int) int {
	level := tankHeightMM - distanceMM
	if level < 0 {
		return 0
	}
	return level
}

// SampleBuffer is a fixed-capacity ring of recent water levels used as a
// moving-average filter. Capacity is set once at boot and never changes;
// the running sum keeps Average at O(1).
// Not safe for concurrent use; the control loop is the only writer.
type SampleBuffer struct {
	buf   []int
	head  int // next write position
	count int
	sum   int
}

// NewSampleBuffer creates a buffer holding up to capacity samples.
// A capacity below 1 is treated as 1 (no smoothing).
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &SampleBuffer{buf: make([]int, capacity)}
}

// Push appends a level reading, evicting the oldest once full.
func (b *SampleBuffer) Push(level int) {
	if b.count == len(b.buf) {
		// head points at the oldest entry when full
		b.sum -= b.buf[b.head]
		b.count--
	}
	b.buf[b.head] = level
	b.head = (b.head + 1) % len(b.buf)
	b.count++
	b.sum += level
}

// Average returns the integer floor mean of the buffered samples.
// ok is false while the buffer is empty.
func (b *SampleBuffer) Average() (avg int, ok bool) {
	if b.count == 0 {
		return 0, false
	}
	return b.sum / b.count, true
}

// Len returns the number of buffered samples.
func (b *SampleBuffer) Len() int {
	return b.count
}
