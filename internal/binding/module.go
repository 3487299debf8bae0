// Package binding is the registration surface that exposes Go types to remote
// callers. A Module holds named classes; each class has a constructor taking a
// Session and a set of named methods. The runtime service instantiates one
// root object per session and dispatches calls to it by method name.
package binding

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a root object for a fresh session.
type Constructor func(s *Session) (any, error)

// Method is a dispatchable method. self is the value returned by the
// class constructor; args are decoded positional arguments.
type Method func(ctx context.Context, self any, args []any) (any, error)

// Class is a constructible type with named methods.
type Class struct {
	name    string
	ctor    Constructor
	methods map[string]Method
	err     error
}

// Name returns the registered class name.
func (c *Class) Name() string { return c.name }

// Def adds a method and returns the class for chaining.
// A duplicate name is recorded and surfaced by Module.Err.
func (c *Class) Def(name string, fn Method) *Class {
	if _, exists := c.methods[name]; exists && c.err == nil {
		c.err = fmt.Errorf("%w: %s.%s", ErrDuplicateMethod, c.name, name)
		return c
	}
	c.methods[name] = fn
	return c
}

// Methods returns method names in sorted order.
func (c *Class) Methods() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Module is a named collection of classes.
type Module struct {
	name string

	mu      sync.RWMutex
	classes map[string]*Class
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		name:    name,
		classes: make(map[string]*Class),
	}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Class registers a class and returns it so methods can be chained onto it.
func (m *Module) Class(name string, ctor Constructor) (*Class, error) {
	if ctor == nil {
		return nil, ErrNilConstructor
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.classes[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateClass, name)
	}
	c := &Class{
		name:    name,
		ctor:    ctor,
		methods: make(map[string]Method),
	}
	m.classes[name] = c
	return c, nil
}

// Err returns the first definition error recorded on any class.
func (m *Module) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, name := range m.classNamesLocked() {
		if err := m.classes[name].err; err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the class registered under name.
func (m *Module) Lookup(name string) (*Class, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[name]
	return c, ok
}

// Classes returns registered class names in sorted order.
func (m *Module) Classes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.classNamesLocked()
}

func (m *Module) classNamesLocked() []string {
	names := make([]string, 0, len(m.classes))
	for name := range m.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs an instance of the named class bound to s.
func (m *Module) New(className string, s *Session) (*Object, error) {
	c, ok := m.Lookup(className)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, className)
	}
	if s.Closed() {
		return nil, ErrSessionClosed
	}

	self, err := c.ctor(s)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", className, err)
	}

	return &Object{class: c, self: self, session: s}, nil
}

// Object is a constructed instance with its class and session.
type Object struct {
	class   *Class
	self    any
	session *Session
}

// ClassName returns the instance's class name.
func (o *Object) ClassName() string { return o.class.name }

// Session returns the owning session.
func (o *Object) Session() *Session { return o.session }

// Value returns the constructed Go value.
func (o *Object) Value() any { return o.self }

// Call dispatches a method by name. Method errors are returned unwrapped so
// callers can match them with errors.As.
func (o *Object) Call(ctx context.Context, method string, args []any) (any, error) {
	if o.session.Closed() {
		return nil, ErrSessionClosed
	}
	fn, ok := o.class.methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, o.class.name, method)
	}
	return fn(ctx, o.self, args)
}

// CheckArgs returns ErrArgCount unless exactly want arguments were passed.
func CheckArgs(args []any, want int) error {
	if len(args) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrArgCount, len(args), want)
	}
	return nil
}
