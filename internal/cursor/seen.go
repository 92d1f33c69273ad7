package cursor

// seenSet is an insertion-ordered set of trade ids. It grows freely while a
// cycle is classified; the bound is applied only when the ids are emitted.
type seenSet struct {
	order []string
	index map[string]struct{}
}

func newSeenSet(ids []string) *seenSet {
	s := &seenSet{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *seenSet) has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// add appends id unless it is already a member. Re-adding does not refresh
// its position.
func (s *seenSet) add(id string) {
	if s.has(id) {
		return
	}
	s.order = append(s.order, id)
	s.index[id] = struct{}{}
}

// ids returns at most max members, the most recently inserted ones, oldest
// first. max <= 0 returns all of them.
func (s *seenSet) ids(max int) []string {
	src := s.order
	if max > 0 && len(src) > max {
		src = src[len(src)-max:]
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
