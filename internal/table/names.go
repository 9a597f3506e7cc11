package table

// Names is a table-local name dictionary. Id 0 is reserved for the empty
// name so that unnamed records can use the zero value.
type Names struct {
	list []string
	ids  map[string]int32
}

// NewNames creates an empty dictionary.
func NewNames() *Names {
	return &Names{
		list: []string{""},
		ids:  map[string]int32{"": 0},
	}
}

// Index returns the id of name, adding it if needed.
func (n *Names) Index(name string) int32 {
	if id, ok := n.ids[name]; ok {
		return id
	}
	id := int32(len(n.list))
	n.list = append(n.list, name)
	n.ids[name] = id
	return id
}

// ID returns the id of name without adding it.
func (n *Names) ID(name string) (int32, bool) {
	id, ok := n.ids[name]
	return id, ok
}

// Lookup returns the name for id, or "" for unknown ids.
func (n *Names) Lookup(id int32) string {
	if id < 0 || int(id) >= len(n.list) {
		return ""
	}
	return n.list[id]
}

// Len returns the number of entries including the reserved empty name.
func (n *Names) Len() int {
	return len(n.list)
}

// All returns a copy of the dictionary in id order.
func (n *Names) All() []string {
	out := make([]string, len(n.list))
	copy(out, n.list)
	return out
}
