// Package access implements the operator allow-list.
package access

// Guard authorizes caller identities against a fixed allow-list supplied at
// startup. The list is read-only after construction, so lookups need no
// locking.
type Guard struct {
	allowed map[int64]struct{}
}

// NewGuard builds a guard from the configured operator ids.
func NewGuard(ids []int64) *Guard {
	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return &Guard{allowed: allowed}
}

// Authorize reports whether id is an allowed operator.
func (g *Guard) Authorize(id int64) bool {
	_, ok := g.allowed[id]
	return ok
}
