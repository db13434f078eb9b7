package buffer

// Index reports the lowest logical offset at which pattern occurs as a
// contiguous subsequence of the stored bytes, or -1 if there is no match.
// Offsets count from the oldest stored byte, the same addressing Peek uses.
//
// An empty pattern matches at offset 0. A pattern longer than Len() never
// matches. The scan is a naive byte-by-byte comparison; candidates are
// translated through the wrap, so a match may span the physical end of
// storage.
func (r *Ring) Index(pattern []byte) int {
	if r == nil {
		return -1
	}
	if len(pattern) == 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	used := r.used()
	if len(pattern) > used {
		return -1
	}
	size := int64(len(r.buf))
	for i := 0; i+len(pattern) <= used; i++ {
		j := 0
		for j < len(pattern) && r.buf[(r.head+int64(i+j))%size] == pattern[j] {
			j++
		}
		if j == len(pattern) {
			return i
		}
	}
	return -1
}
