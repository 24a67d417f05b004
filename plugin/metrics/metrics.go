// Package metrics provides a granary plugin that records resolution and
// admin activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/granary"
	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/plugin"
	"github.com/xraph/granary/role"
)

// Resolution outcomes.
const (
	OutcomeResolved = "resolved"
	OutcomeCached   = "cached"
	OutcomeFailed   = "failed"
)

var (
	_ plugin.Plugin            = (*Plugin)(nil)
	_ plugin.AfterResolve      = (*Plugin)(nil)
	_ plugin.ResolveFailed     = (*Plugin)(nil)
	_ plugin.RoleAssigned      = (*Plugin)(nil)
	_ plugin.GroupMemberAdded  = (*Plugin)(nil)
	_ plugin.PermissionCreated = (*Plugin)(nil)
)

// Plugin holds the granary Prometheus collectors.
type Plugin struct {
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	PermissionSetSize  *prometheus.HistogramVec
	MutationsTotal     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them with registry.
func New(registry *prometheus.Registry) *Plugin {
	p := &Plugin{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "granary_resolutions_total",
				Help: "Total number of permission set resolutions",
			},
			[]string{"outcome", "error_kind"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "granary_resolution_duration_seconds",
				Help:    "Uncached resolution duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"grain"},
		),
		PermissionSetSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "granary_permission_set_size",
				Help:    "Number of effective and denied permissions per resolution",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"kind"},
		),
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "granary_mutations_total",
				Help: "Total number of admin mutations",
			},
			[]string{"operation"},
		),
		registry: registry,
	}

	registry.MustRegister(
		p.ResolutionsTotal,
		p.ResolutionDuration,
		p.PermissionSetSize,
		p.MutationsTotal,
	)
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "metrics" }

// Handler serves the registry in the Prometheus exposition format.
func (p *Plugin) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Plugin) OnAfterResolve(_ context.Context, _, result any) error {
	set, ok := result.(*granary.ResolvedPermissionSet)
	if !ok {
		return nil
	}
	if set.Cached {
		p.ResolutionsTotal.WithLabelValues(OutcomeCached, "").Inc()
		return nil
	}
	p.ResolutionsTotal.WithLabelValues(OutcomeResolved, "").Inc()
	p.ResolutionDuration.WithLabelValues(set.Grain).Observe(time.Duration(set.EvalTimeNs).Seconds())
	p.PermissionSetSize.WithLabelValues("effective").Observe(float64(len(set.Permissions)))
	p.PermissionSetSize.WithLabelValues("denied").Observe(float64(len(set.Denied)))
	return nil
}

func (p *Plugin) OnResolveFailed(_ context.Context, _ any, err error) error {
	p.ResolutionsTotal.WithLabelValues(OutcomeFailed, granary.KindOf(err).String()).Inc()
	return nil
}

func (p *Plugin) mutation(op string) error {
	p.MutationsTotal.WithLabelValues(op).Inc()
	return nil
}

func (p *Plugin) OnRoleCreated(context.Context, *role.Role) error { return p.mutation("role_created") }
func (p *Plugin) OnRoleDeleted(context.Context, id.RoleID) error  { return p.mutation("role_deleted") }
func (p *Plugin) OnPermissionCreated(context.Context, *permission.Permission) error {
	return p.mutation("permission_created")
}
func (p *Plugin) OnPermissionDeleted(context.Context, id.PermissionID) error {
	return p.mutation("permission_deleted")
}
func (p *Plugin) OnPermissionAttached(context.Context, id.RoleID, id.PermissionID) error {
	return p.mutation("permission_attached")
}
func (p *Plugin) OnPermissionDetached(context.Context, id.RoleID, id.PermissionID) error {
	return p.mutation("permission_detached")
}
func (p *Plugin) OnRoleAssigned(context.Context, *assignment.Assignment) error {
	return p.mutation("role_assigned")
}
func (p *Plugin) OnRoleUnassigned(context.Context, *assignment.Assignment) error {
	return p.mutation("role_unassigned")
}
func (p *Plugin) OnGroupCreated(context.Context, *group.Group) error { return p.mutation("group_created") }
func (p *Plugin) OnGroupDeleted(context.Context, id.GroupID) error   { return p.mutation("group_deleted") }
func (p *Plugin) OnGroupMemberAdded(context.Context, *group.Member) error {
	return p.mutation("group_member_added")
}
func (p *Plugin) OnGroupMemberRemoved(context.Context, id.GroupID, group.MemberKind, string) error {
	return p.mutation("group_member_removed")
}
