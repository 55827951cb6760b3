package gateway

// Registry maps gateway names to configured adapters. It is built once at
// startup from the injected config; nothing here is lazily initialized.
type Registry struct {
	byName map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{byName: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.byName[g.Name()] = g
	}
	return r
}

func (r *Registry) Get(name string) (Gateway, bool) {
	g, ok := r.byName[name]
	return g, ok
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}
