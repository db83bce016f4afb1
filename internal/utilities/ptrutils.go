package utilities

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Clone returns a pointer to a copy of *p, or nil if p is nil.
func Clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
