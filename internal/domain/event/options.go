package event

// ListOptions provides filtering options for listing events.
type ListOptions struct {
	ProjectID *uint64
	Type      *Type
	AfterSeq  int64
	Limit     int
}
