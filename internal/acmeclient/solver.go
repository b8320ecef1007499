package acmeclient

import (
	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/http01"
)

// HTTP01ContentType is served with every HTTP-01 key authorization.
const HTTP01ContentType = "application/octet-stream"

// Response is what must be published for a challenge to validate.
type Response struct {
	Path        string
	Value       string
	ContentType string
}

// Solver answers one challenge type.
type Solver interface {
	Type() challenge.Type
	Response(token, keyAuth string) Response
}

// HTTP01Solver publishes the key authorization under /.well-known/acme-challenge.
type HTTP01Solver struct{}

func (HTTP01Solver) Type() challenge.Type { return challenge.HTTP01 }

func (HTTP01Solver) Response(token, keyAuth string) Response {
	return Response{
		Path:        http01.ChallengePath(token),
		Value:       keyAuth,
		ContentType: HTTP01ContentType,
	}
}

// Solvers maps challenge types to the solver that handles them. Offered
// challenges without a solver are ignored.
type Solvers map[challenge.Type]Solver

// DefaultSolvers returns the built-in solvers.
func DefaultSolvers() Solvers {
	return NewSolvers(HTTP01Solver{})
}

func NewSolvers(solvers ...Solver) Solvers {
	s := make(Solvers, len(solvers))
	for _, solver := range solvers {
		s[solver.Type()] = solver
	}
	return s
}

// Supports reports whether a solver is registered for typ.
func (s Solvers) Supports(typ string) bool {
	_, ok := s[challenge.Type(typ)]
	return ok
}

func (s Solvers) get(typ string) (Solver, bool) {
	solver, ok := s[challenge.Type(typ)]
	return solver, ok
}
