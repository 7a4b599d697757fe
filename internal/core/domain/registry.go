package domain

// Registry is the singleton index shared by every stream. TotalStreams and
// ActiveStreams must always satisfy active <= total; each category bucket is
// an append-only sequence of stream ids with no removal path. Bucket order
// is display-only.
type Registry struct {
	TotalStreams  uint64
	ActiveStreams uint64
	ByCategory    map[string][]StreamID
}

func NewRegistry() *Registry {
	return &Registry{ByCategory: make(map[string][]StreamID)}
}

func (r *Registry) Clone() *Registry {
	cp := &Registry{
		TotalStreams:  r.TotalStreams,
		ActiveStreams: r.ActiveStreams,
		ByCategory:    make(map[string][]StreamID, len(r.ByCategory)),
	}
	for cat, ids := range r.ByCategory {
		cp.ByCategory[cat] = append([]StreamID(nil), ids...)
	}
	return cp
}
