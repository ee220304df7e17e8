package mqtt

import (
	"sort"

	log "github.com/sirupsen/logrus"
)

// bufferedMsg is a serialized message held until the broker is reachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
	seq      uint64 // push order, set by offlineQueue
}

// offlineQueue holds messages while the broker is unreachable.
//
// Decoded events and non-retained system events share a fixed ring that
// drops the oldest entry when full: a held button produces a steady stream
// of CONTINUE events and the newest ones matter most. A retained message
// supersedes any earlier retained message on its topic, since the broker
// would only keep the last one anyway, and takes its replay slot from the
// newer push.
//
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type offlineQueue struct {
	ring  []bufferedMsg
	head  int // next write position
	count int

	retained []bufferedMsg // at most one per topic, in first-seen order

	seq     uint64
	full    bool   // ring overflowed since the last drain
	dropped uint64 // messages lost, lifetime total
}

func newOfflineQueue(capacity int) *offlineQueue {
	return &offlineQueue{ring: make([]bufferedMsg, capacity)}
}

func (q *offlineQueue) push(msg bufferedMsg) {
	msg.seq = q.seq
	q.seq++

	if msg.retained {
		for i := range q.retained {
			if q.retained[i].topic == msg.topic {
				q.retained[i] = msg
				q.dropped++
				return
			}
		}
		q.retained = append(q.retained, msg)
		return
	}

	if q.count == len(q.ring) {
		if !q.full {
			log.WithField("capacity", len(q.ring)).Warn("mqtt: offline buffer full, dropping oldest")
			q.full = true
		}
		q.dropped++
		q.ring[q.head] = msg
		q.head = (q.head + 1) % len(q.ring)
		return
	}
	q.ring[q.head] = msg
	q.head = (q.head + 1) % len(q.ring)
	q.count++
}

// drain empties the queue, returning messages in the order they were pushed.
func (q *offlineQueue) drain() []bufferedMsg {
	n := q.count + len(q.retained)
	if n == 0 {
		return nil
	}

	out := make([]bufferedMsg, 0, n)
	start := (q.head - q.count + len(q.ring)) % len(q.ring)
	for i := 0; i < q.count; i++ {
		out = append(out, q.ring[(start+i)%len(q.ring)])
	}
	out = append(out, q.retained...)
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })

	q.head = 0
	q.count = 0
	q.retained = nil
	q.full = false
	return out
}

func (q *offlineQueue) len() int {
	return q.count + len(q.retained)
}
