package domain

// Zero overwrites a byte slice with zeros to clear sensitive material from
// memory. Safe to call with a nil slice.
func Zero(b []byte) {
	clear(b)
}
