package lock

import "heapstore/pkg/primitives"

// HasDeadlock reports whether tid's wait on pid closes a cycle in the
// waits-for graph: some current holder of pid is, directly or transitively,
// waiting for a page that tid holds.
//
// The traversal runs entirely under the manager mutex, so it sees a
// consistent snapshot of the lock table and the wait registry. Edges follow
// waitingFor[other] to that page's holders and onward; the check is
// conservative and answers true as soon as any such path reaches tid.
//
// The caller is the victim: on true its wait registration is dropped in the
// same critical section, so of two transactions closing one cycle only the
// first to check aborts — the survivor's next traversal no longer sees the
// victim waiting.
func (m *Manager) HasDeadlock(tid *primitives.TransactionID, pid primitives.PageID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	visited := make(map[*primitives.TransactionID]bool)
	for _, ls := range m.locksOnPage[primitives.KeyOf(pid)] {
		holder := ls.TID
		if holder == tid || visited[holder] {
			continue
		}
		visited[holder] = true
		if m.waitsOn(holder, tid, visited) {
			delete(m.waitingFor, tid)
			return true
		}
	}
	return false
}

// waitsOn walks the waits-for graph from h, returning true if any reachable
// page is held by target.
func (m *Manager) waitsOn(h, target *primitives.TransactionID, visited map[*primitives.TransactionID]bool) bool {
	key, waiting := m.waitingFor[h]
	if !waiting {
		return false
	}

	for _, ls := range m.locksOnPage[key] {
		holder := ls.TID
		if holder == h {
			continue
		}
		if holder == target {
			return true
		}
		if visited[holder] {
			continue
		}
		visited[holder] = true
		if m.waitsOn(holder, target, visited) {
			return true
		}
	}
	return false
}
