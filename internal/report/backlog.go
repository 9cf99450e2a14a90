package report

import "log"

// queuedMsg holds a message waiting for broker reconnection.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a bounded FIFO for messages produced while the broker is
// unreachable. The oldest message is dropped on overflow.
// Not safe for concurrent use; the owner must synchronize.
type backlog struct {
	msgs    []queuedMsg
	max     int
	dropped bool // a message was dropped since the last drain
}

func newBacklog(max int) *backlog {
	return &backlog{max: max}
}

func (b *backlog) push(msg queuedMsg) {
	if len(b.msgs) == b.max {
		if !b.dropped {
			log.Printf("report: backlog full (%d messages), dropping oldest", b.max)
			b.dropped = true
		}
		copy(b.msgs, b.msgs[1:])
		b.msgs = b.msgs[:b.max-1]
	}
	b.msgs = append(b.msgs, msg)
}

func (b *backlog) drain() []queuedMsg {
	if len(b.msgs) == 0 {
		return nil
	}
	out := b.msgs
	b.msgs = nil
	b.dropped = false
	return out
}

func (b *backlog) len() int {
	return len(b.msgs)
}
