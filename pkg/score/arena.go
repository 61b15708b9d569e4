package score

// Index is a stable handle to a symbol in an [Arena].
type Index int32

// Nil is the null index terminating both chains.
const Nil Index = -1

// Valid reports whether i addresses a symbol.
func (i Index) Valid() bool { return i >= 0 }

// Arena owns every symbol of a tune. Indices stay valid for the lifetime of
// the arena; symbols are never removed, only unlinked from the chains.
type Arena struct {
	syms []Symbol
}

// Add stores s and returns its index. Chain links are reset to Nil.
func (a *Arena) Add(s Symbol) Index {
	s.Next, s.Prev, s.TNext, s.TPrev = Nil, Nil, Nil, Nil
	a.syms = append(a.syms, s)
	return Index(len(a.syms) - 1)
}

// At returns the symbol at i. The pointer is invalidated by the next Add.
func (a *Arena) At(i Index) *Symbol { return &a.syms[i] }

// Len returns the number of symbols ever added.
func (a *Arena) Len() int { return len(a.syms) }
