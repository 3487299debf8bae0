package duck

import (
	"context"
	"fmt"

	"github.com/solatis/ducktest/internal/binding"
)

// Registered names.
const (
	ModuleName      = "ducktest"
	ClassDuckTester = "DuckTester"
	MethodIsItADuck = "is_it_a_duck"
)

// Bind registers DuckTester and its method on m.
func Bind(m *binding.Module) error {
	c, err := m.Class(ClassDuckTester, func(s *binding.Session) (any, error) {
		return NewDuckTester(s), nil
	})
	if err != nil {
		return err
	}
	c.Def(MethodIsItADuck, isItADuck)
	return m.Err()
}

// NewModule returns the ducktest module with everything bound.
func NewModule() (*binding.Module, error) {
	m := binding.NewModule(ModuleName)
	if err := Bind(m); err != nil {
		return nil, err
	}
	return m, nil
}

func isItADuck(_ context.Context, self any, args []any) (any, error) {
	t, ok := self.(*DuckTester)
	if !ok {
		return nil, fmt.Errorf("%w: receiver is %T", binding.ErrArgType, self)
	}
	if err := binding.CheckArgs(args, 1); err != nil {
		return nil, err
	}
	rec, err := RecordFrom(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", binding.ErrArgType, err)
	}
	return t.IsItADuck(rec)
}
