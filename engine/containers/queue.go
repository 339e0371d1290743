package containers

import "errors"

var ErrQueueEmpty = errors.New("queue is empty")

// Queue is a FIFO ring buffer that doubles its capacity when full.
// It is not safe for concurrent use; callers guard it themselves.
type Queue[T any] struct {
	data       []T
	readIndex  int
	writeIndex int
	count      int
}

// Create a new Queue with room for size elements before the first grow.
func NewQueue[T any](size int) *Queue[T] {
	if size < 1 {
		size = 1
	}
	return &Queue[T]{
		data: make([]T, size),
	}
}

// Enqueue adds an element to the back of the queue
func (q *Queue[T]) Enqueue(value T) {
	if q.count == len(q.data) {
		q.grow()
	}
	q.data[q.writeIndex] = value
	q.writeIndex = (q.writeIndex + 1) % len(q.data)
	q.count++
}

// Dequeue removes and returns the front element in the queue
func (q *Queue[T]) Dequeue() (T, error) {
	var zero T
	if q.IsEmpty() {
		return zero, ErrQueueEmpty
	}

	value := q.data[q.readIndex]
	q.data[q.readIndex] = zero
	q.readIndex = (q.readIndex + 1) % len(q.data)
	q.count--
	return value, nil
}

// Peek returns the front element without removing it
func (q *Queue[T]) Peek() (T, error) {
	if q.IsEmpty() {
		var zero T
		return zero, ErrQueueEmpty
	}
	return q.data[q.readIndex], nil
}

// DrainAll empties the queue and returns its elements in FIFO order.
func (q *Queue[T]) DrainAll() []T {
	out := make([]T, 0, q.count)
	for !q.IsEmpty() {
		v, _ := q.Dequeue()
		out = append(out, v)
	}
	return out
}

// Snapshot returns the queued elements in FIFO order without removing them.
func (q *Queue[T]) Snapshot() []T {
	out := make([]T, q.count)
	for i := 0; i < q.count; i++ {
		out[i] = q.data[(q.readIndex+i)%len(q.data)]
	}
	return out
}

func (q *Queue[T]) Len() int {
	return q.count
}

// IsEmpty checks if the queue is empty
func (q *Queue[T]) IsEmpty() bool {
	return q.count == 0
}

func (q *Queue[T]) grow() {
	data := make([]T, len(q.data)*2)
	n := copy(data, q.data[q.readIndex:])
	copy(data[n:], q.data[:q.readIndex])
	q.data = data
	q.readIndex = 0
	q.writeIndex = q.count
}
