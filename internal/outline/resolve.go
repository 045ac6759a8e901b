package outline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel lookups in ResolveMembers.
const DefaultConcurrency = 4

// Select picks one candidate for entity. A single hit is taken as is.
// With several hits the first exact unique-name match wins, then the first
// exact name match, then the first hit.
func Select(entity string, candidates []Candidate) (Candidate, bool) {
	switch len(candidates) {
	case 0:
		return Candidate{}, false
	case 1:
		return candidates[0], true
	}
	for _, c := range candidates {
		if c.UniqueName == entity {
			return c, true
		}
	}
	for _, c := range candidates {
		if c.Name == entity {
			return c, true
		}
	}
	return candidates[0], true
}

// Resolve looks up each name in order and returns one Resolution per input
// name, in input order. Duplicate names are looked up again. A failed lookup
// resolves to a nil Member and does not stop the batch.
func Resolve(ctx context.Context, names []string, lookup LookupFunc) []Resolution {
	out := make([]Resolution, len(names))
	for i, name := range names {
		out[i] = resolveOne(ctx, name, lookup, nil)
	}
	return out
}

// Resolver resolves batches of names with bounded concurrent lookups.
type Resolver struct {
	lookup      LookupFunc
	concurrency int
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency sets the maximum number of lookups in flight.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger used to report failed lookups.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver backed by lookup.
func NewResolver(lookup LookupFunc, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:      lookup,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveMembers behaves like Resolve but dispatches lookups concurrently.
// Results are assembled by input index, so order matches names.
func (r *Resolver) ResolveMembers(ctx context.Context, names []string) []Resolution {
	out := make([]Resolution, len(names))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, name := range names {
		g.Go(func() error {
			out[i] = resolveOne(ctx, name, r.lookup, r.logger)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func resolveOne(ctx context.Context, name string, lookup LookupFunc, logger *slog.Logger) Resolution {
	res := Resolution{Name: name}

	candidates, err := lookup(ctx, name)
	if err != nil {
		if logger != nil {
			logger.Debug("Member lookup failed", "entity", name, "error", err)
		}
		return res
	}

	chosen, ok := Select(name, candidates)
	if !ok {
		return res
	}

	member, ok := chosen.Member()
	if !ok {
		if logger != nil {
			logger.Debug("Selected candidate has no unique name", "entity", name, "candidate", chosen.Name)
		}
		return res
	}
	res.Member = &member
	return res
}
