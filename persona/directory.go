package persona

import "strings"

// Directory exposes read-only persona lookup.
type Directory interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryDirectory implements Directory over a fixed slice.
type MemoryDirectory struct {
	items []Persona
}

// NewMemoryDirectory returns a MemoryDirectory holding a copy of items.
func NewMemoryDirectory(items []Persona) *MemoryDirectory {
	return &MemoryDirectory{items: append([]Persona(nil), items...)}
}

// List returns the personas in directory order.
func (d *MemoryDirectory) List() []Persona {
	return append([]Persona(nil), d.items...)
}

// FindByID looks up a persona by identifier, ignoring case so that
// "@athena" reaches Athena.
func (d *MemoryDirectory) FindByID(id string) (Persona, bool) {
	for _, item := range d.items {
		if strings.EqualFold(item.ID, id) {
			return item, true
		}
	}
	return Persona{}, false
}

// IDs returns the persona identifiers in directory order.
func IDs(d Directory) []string {
	list := d.List()
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	return ids
}

// AvatarFor returns the avatar of the persona with the given ID, or "".
func AvatarFor(d Directory, id string) string {
	if p, ok := d.FindByID(id); ok {
		return p.Avatar
	}
	return ""
}
