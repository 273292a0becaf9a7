package crawler

import (
	"container/heap"
	"errors"
	"sync"

	"github.com/rankriot/rankriot/internal/models"
)

// ErrQueueDrained signals that the queue is empty and no worker holds an
// in-flight item, so no further URLs can appear.
var ErrQueueDrained = errors.New("crawl queue drained")

// ErrQueueClosed signals the queue was shut down mid-scan.
var ErrQueueClosed = errors.New("crawl queue closed")

// CrawlQueue is a priority-ordered URL frontier. Higher priority pops
// first; equal priorities pop in insertion order. A URL is admitted at
// most once per queue lifetime, tracked by canonical form.
type CrawlQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    queueHeap
	seen     map[string]bool
	inFlight int
	paused   bool
	closed   bool
	seq      uint64
	popped   int
	maxPages int
}

// NewCrawlQueue creates a frontier that stops admitting URLs once
// maxPages items have been popped. maxPages <= 0 means unbounded.
func NewCrawlQueue(maxPages int) *CrawlQueue {
	q := &CrawlQueue{
		seen:     make(map[string]bool),
		maxPages: maxPages,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push admits a URL if it has not been seen before. Returns true when the
// item was enqueued.
func (q *CrawlQueue) Push(item models.QueueItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.seen[item.URL] {
		return false
	}
	q.seen[item.URL] = true

	q.seq++
	heap.Push(&q.items, &queueEntry{item: item, seq: q.seq})
	q.cond.Signal()
	return true
}

// Pop blocks until an item is available, the page budget is exhausted, or
// the queue drains. Each successful Pop must be paired with a Done call.
func (q *CrawlQueue) Pop() (models.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.closed {
			return models.QueueItem{}, ErrQueueClosed
		}
		if q.paused {
			return models.QueueItem{}, ErrQueueDrained
		}
		if q.maxPages > 0 && q.popped >= q.maxPages {
			return models.QueueItem{}, ErrQueueDrained
		}
		if q.items.Len() > 0 {
			entry := heap.Pop(&q.items).(*queueEntry)
			q.popped++
			q.inFlight++
			return entry.item, nil
		}
		if q.items.Len() == 0 && q.inFlight == 0 {
			return models.QueueItem{}, ErrQueueDrained
		}
		q.cond.Wait()
	}
}

// Done marks one in-flight item finished. Workers call this after the
// page's links have been pushed, so drain detection stays accurate.
func (q *CrawlQueue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight > 0 {
		q.inFlight--
	}
	q.cond.Broadcast()
}

// Pause makes Pop report the queue as drained without discarding queued
// items, so workers wind down cleanly when the page budget is hit.
func (q *CrawlQueue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paused = true
	q.cond.Broadcast()
}

// Resume releases a paused queue
func (q *CrawlQueue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paused = false
	q.cond.Broadcast()
}

// Close wakes all blocked workers; subsequent Pops fail with ErrQueueClosed
func (q *CrawlQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued items
func (q *CrawlQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Seen reports whether a URL was ever admitted
func (q *CrawlQueue) Seen(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seen[url]
}

type queueEntry struct {
	item models.QueueItem
	seq  uint64
}

type queueHeap []*queueEntry

func (h queueHeap) Len() int { return len(h) }

func (h queueHeap) Less(i, j int) bool {
	if h[i].item.Priority != h[j].item.Priority {
		return h[i].item.Priority > h[j].item.Priority
	}
	return h[i].seq < h[j].seq
}

func (h queueHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *queueHeap) Push(x interface{}) {
	*h = append(*h, x.(*queueEntry))
}

func (h *queueHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}
