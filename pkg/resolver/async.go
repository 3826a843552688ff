package resolver

import (
	"context"
	"sync/atomic"

	"github.com/goliatone/go-resumekit/pkg/render"
)

// Poster delivers a callback onto the consumer's event loop. Post reports
// false when the loop has stopped and the callback was dropped.
type Poster interface {
	Post(fn func()) bool
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(fn func()) bool

// Post implements Poster.
func (f PosterFunc) Post(fn func()) bool { return f(fn) }

// Result is the settled outcome of an asynchronous resolution.
type Result struct {
	Name     string
	Renderer render.Renderer
	Err      error
}

// Fallback reports whether the resolution degraded to the fallback renderer.
func (r Result) Fallback() bool { return r.Err != nil }

// Switcher resolves templates off the event loop for a single consumer and
// applies only the most recent request: a load superseded by a later Switch is
// not aborted, but its completion is ignored.
type Switcher struct {
	resolver *Resolver
	poster   Poster
	latest   atomic.Uint64
}

// NewSwitcher binds a resolver to the loop results are delivered on.
func NewSwitcher(resolver *Resolver, poster Poster) *Switcher {
	return &Switcher{resolver: resolver, poster: poster}
}

// Switch starts resolving name and returns the request generation. apply runs
// on the poster's loop once the load settles, and only if no later Switch was
// issued by then.
func (s *Switcher) Switch(ctx context.Context, name string, apply func(Result)) uint64 {
	generation := s.latest.Add(1)

	go func() {
		renderer, err := s.resolver.Lookup(ctx, name)
		if err != nil {
			s.resolver.logger.Warn("template resolution failed",
				"template", name,
				"error", err,
			)
			renderer = s.resolver.fallback(name, err)
		}
		result := Result{Name: name, Renderer: renderer, Err: err}

		s.poster.Post(func() {
			if s.latest.Load() != generation {
				s.resolver.logger.Debug("dropping superseded template resolution",
					"template", name,
					"generation", generation,
				)
				return
			}
			if apply != nil {
				apply(result)
			}
		})
	}()
	return generation
}

// Supersede invalidates every pending Switch without starting a new load.
// Consumers call it when they pick a renderer by other means.
func (s *Switcher) Supersede() uint64 {
	return s.latest.Add(1)
}

// Current returns the generation of the most recent Switch.
func (s *Switcher) Current() uint64 {
	return s.latest.Load()
}
