package scheduler

import "container/heap"

// queueItem is one pending entry. sequence is milliseconds since the
// epoch at enqueue time (retries push it into the future, costing queue
// position); order breaks same-millisecond ties in submission order.
type queueItem struct {
	jobID    string
	sequence int64
	order    uint64
}

// jobQueue is a min-heap of queue items, earliest sequence first.
type jobQueue []*queueItem

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if q[i].sequence != q[j].sequence {
		return q[i].sequence < q[j].sequence
	}
	return q[i].order < q[j].order
}

func (q jobQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *jobQueue) Push(x any) { *q = append(*q, x.(*queueItem)) }

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

func (q *jobQueue) push(item *queueItem) { heap.Push(q, item) }

func (q *jobQueue) pop() (*queueItem, bool) {
	if q.Len() == 0 {
		return nil, false
	}
	return heap.Pop(q).(*queueItem), true
}
