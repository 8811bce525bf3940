package resolver

import (
	"context"

	"golang.org/x/sync/singleflight"
)

type deduplicated struct {
	inner Resolver
	group singleflight.Group
}

// Deduplicate collapses concurrent resolutions of the same reference into one call.
// The first caller's context governs the shared call.
func Deduplicate(r Resolver) Resolver {
	return &deduplicated{inner: r}
}

func (d *deduplicated) Resolve(ctx context.Context, ref string) (*Stream, error) {
	v, err, _ := d.group.Do(ref, func() (any, error) {
		return d.inner.Resolve(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	stream, _ := v.(*Stream)
	if stream == nil {
		return nil, ErrNoStream
	}
	return stream.Clone(), nil
}
