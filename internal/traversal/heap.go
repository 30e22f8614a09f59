// Binary-heap priority queue shared by Dijkstra and A* (§4.D). Grounded
// on the teacher's apoc/algo/algo.go Item/PriorityQueue pair: an
// index-tracking container/heap.Interface implementation ordered by a
// float priority, generalized here from a fixed Node pointer payload to
// a generic vid+path payload so both algorithms can reuse one queue.
package traversal

import "container/heap"

// pqItem is one entry in the frontier: the vertex reached, the
// cumulative cost to reach it (distance for Dijkstra, f_score for A*),
// and the persistent path taken. index is maintained by container/heap
// for O(log n) removal, mirroring the teacher's Item.index field.
type pqItem struct {
	vidKey   string
	priority float64
	path     interface{} // *model.NPath, kept opaque to avoid an import cycle with model in this file
	index    int
}

// priorityQueue is a min-heap on priority, matching §4.D's "Reverse
// ordering for min-heap" over a max-heap-by-default container/heap.
type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].priority < pq[j].priority
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func newPriorityQueue() *priorityQueue {
	pq := make(priorityQueue, 0)
	heap.Init(&pq)
	return &pq
}

func (pq *priorityQueue) push(item *pqItem) { heap.Push(pq, item) }

func (pq *priorityQueue) pop() *pqItem {
	return heap.Pop(pq).(*pqItem)
}
