// Package duck implements the duck test: a record that looks, swims and
// quacks like a duck is probably a duck.
package duck

import (
	"github.com/solatis/ducktest/internal/binding"
	"github.com/solatis/ducktest/internal/types"
)

// DuckTester is a stateless predicate served as a session root.
type DuckTester struct {
	binding.Root
}

// NewDuckTester binds a tester to its session.
func NewDuckTester(s *binding.Session) *DuckTester {
	return &DuckTester{Root: binding.NewRoot(s)}
}

// IsItADuck reports whether looks, swims and quacks all read exactly
// "like a duck". Every field is fetched before comparing, so a missing
// field is always reported as an error rather than a false answer.
func (t *DuckTester) IsItADuck(rec Record) (bool, error) {
	var values [3]string
	for i, key := range types.DuckFields {
		v, err := rec.Get(key)
		if err != nil {
			return false, err
		}
		values[i] = v
	}

	for _, v := range values {
		if v != types.DuckLiteral {
			return false, nil
		}
	}
	return true, nil
}
