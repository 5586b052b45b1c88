package registry

import "sync"

// Registry maps a live connection to the display name it joined with.
// Every operation is atomic for its key; different connections never contend.
type Registry struct {
	names sync.Map // connID -> username
}

func New() *Registry { return &Registry{} }

// Register stores username for connID, replacing any previous mapping.
func (r *Registry) Register(connID, username string) {
	r.names.Store(connID, username)
}

// Claim stores username only when connID has no name yet and returns the
// name that is in effect afterwards.
func (r *Registry) Claim(connID, username string) string {
	v, _ := r.names.LoadOrStore(connID, username)
	return v.(string)
}

// Lookup returns the name for connID. Unknown connections resolve to "".
func (r *Registry) Lookup(connID string) (string, bool) {
	v, ok := r.names.Load(connID)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Name is Lookup without the presence flag.
func (r *Registry) Name(connID string) string {
	name, _ := r.Lookup(connID)
	return name
}

func (r *Registry) Remove(connID string) {
	r.names.Delete(connID)
}

func (r *Registry) Len() int {
	n := 0
	r.names.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
