package packet

// Pairs is an ordered attribute list. Order is preserved on the wire and
// duplicates are allowed.
type Pairs []Pair

// Add appends pairs at the end of the list.
func (ps *Pairs) Add(p ...Pair) {
	*ps = append(*ps, p...)
}

// Get returns the first pair with the given attribute.
func (ps Pairs) Get(attr AttributeID) (Pair, bool) {
	for _, p := range ps {
		if p.Attribute == attr {
			return p, true
		}
	}
	return Pair{}, false
}

// GetAll returns every pair with the given attribute, in list order.
func (ps Pairs) GetAll(attr AttributeID) []Pair {
	var out []Pair
	for _, p := range ps {
		if p.Attribute == attr {
			out = append(out, p)
		}
	}
	return out
}

// Has reports whether the list contains the attribute.
func (ps Pairs) Has(attr AttributeID) bool {
	_, ok := ps.Get(attr)
	return ok
}

// Remove deletes every pair with the given attribute and returns how many
// were removed.
func (ps *Pairs) Remove(attr AttributeID) int {
	kept := (*ps)[:0]
	removed := 0
	for _, p := range *ps {
		if p.Attribute == attr {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	clear((*ps)[len(kept):])
	*ps = kept
	return removed
}

// Replace removes every pair with the attribute of p and appends p.
func (ps *Pairs) Replace(p Pair) {
	ps.Remove(p.Attribute)
	ps.Add(p)
}

// Clone returns a deep copy, so the caller's list is never mutated by a
// request that owns the copy.
func (ps Pairs) Clone() Pairs {
	if ps == nil {
		return nil
	}
	out := make(Pairs, len(ps))
	for i, p := range ps {
		v := make([]byte, len(p.Value))
		copy(v, p.Value)
		out[i] = Pair{Attribute: p.Attribute, Type: p.Type, Value: v}
	}
	return out
}
