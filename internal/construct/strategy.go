package construct

import "fmt"

// Strategy is one recipe for producing a native instance. The variants are
// Direct, FieldInject and Lazy.
type Strategy interface {
	strategy()
	// Arity is the number of arguments or fields the strategy expects, or -1
	// when it is not known until the strategy is prepared.
	Arity() int
	String() string
}

// Direct calls a native constructor whose parameter count equals len(Args).
type Direct struct {
	Args []any
}

// FieldInject zero-constructs the type and assigns Values to its declared
// fields by position. The type must have exactly len(Values) eligible fields.
type FieldInject struct {
	Values []any
}

// Lazy defers building the real strategy until it is reached, for arguments
// that need native construction of their own. A Prepare error counts as a
// failure of this strategy.
type Lazy struct {
	Name    string
	Prepare func() (Strategy, error)
}

func (Direct) strategy()      {}
func (FieldInject) strategy() {}
func (Lazy) strategy()        {}

func (s Direct) Arity() int      { return len(s.Args) }
func (s FieldInject) Arity() int { return len(s.Values) }
func (Lazy) Arity() int          { return -1 }

func (s Direct) String() string      { return fmt.Sprintf("direct(%d)", len(s.Args)) }
func (s FieldInject) String() string { return fmt.Sprintf("field_inject(%d)", len(s.Values)) }

func (s Lazy) String() string {
	if s.Name == "" {
		return "lazy"
	}
	return "lazy(" + s.Name + ")"
}
