package granary

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/granary/id"
)

// ExpandGroups returns every group principalID belongs to, directly or
// through nested groups, sorted by ID. Each group is expanded at most once,
// so cyclic membership graphs terminate.
func (r *Resolver) ExpandGroups(ctx context.Context, principalID string) ([]id.GroupID, error) {
	const op = "expand groups"

	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, &ResolutionError{Kind: KindInvalidArgument, Op: op, Err: fmt.Errorf("principal id is required")}
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, op, err)
	}
	groups, err := r.expand(ctx, scopeFromContext(ctx).tenantID, principalID)
	if err != nil {
		return nil, classify(ctx, op, err)
	}
	return groups, nil
}

// expand is a breadth-first walk up the membership graph. Parent lookups
// for one level run concurrently; cancellation is checked between levels.
func (r *Resolver) expand(ctx context.Context, tenantID, principalID string) ([]id.GroupID, error) {
	frontier, err := r.groups.ListGroupsForPrincipal(ctx, tenantID, principalID)
	if err != nil {
		return nil, fmt.Errorf("groups of principal %q: %w", principalID, err)
	}

	visited := make(map[string]id.GroupID)
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		level := make([]id.GroupID, 0, len(frontier))
		for _, gid := range frontier {
			if _, ok := visited[gid.String()]; ok {
				continue
			}
			visited[gid.String()] = gid
			level = append(level, gid)
		}

		parents := make([][]id.GroupID, len(level))
		eg, egctx := errgroup.WithContext(ctx)
		eg.SetLimit(r.maxFetches)
		for i, gid := range level {
			eg.Go(func() error {
				ps, err := r.groups.ListParentGroups(egctx, gid)
				if err != nil {
					return fmt.Errorf("parents of group %s: %w", gid, err)
				}
				parents[i] = ps
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}

		var next []id.GroupID
		for _, ps := range parents {
			for _, p := range ps {
				if _, ok := visited[p.String()]; !ok {
					next = append(next, p)
				}
			}
		}
		frontier = next
	}

	out := make([]id.GroupID, 0, len(visited))
	for _, gid := range visited {
		out = append(out, gid)
	}
	slices.SortFunc(out, id.Compare)
	return out, nil
}
