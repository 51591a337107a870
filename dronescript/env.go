package dronescript

// Env maps names to values. A function call gets a fresh Env whose parent
// is the global scope; there are no closures.
type Env struct {
	parent *Env
	values map[string]Value
}

func newEnv(parent *Env) *Env {
	return &Env{parent: parent, values: make(map[string]Value)}
}

func (e *Env) Get(name string) (Value, bool) {
	if val, ok := e.values[name]; ok {
		return val, true
	}
	if e.parent != nil {
		return e.parent.Get(name)
	}
	return Value{}, false
}

// Define binds name in this scope. Assignment inside a function always
// creates a local, shadowing any global of the same name.
func (e *Env) Define(name string, val Value) {
	e.values[name] = val
}

// Names returns the names bound in this scope.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	return names
}
