// Package reporting produces per-tenant call summaries for dashboards.
package reporting

import (
	"context"
	"errors"
	"time"

	"voicegate/internal/calls"
)

var ErrInvalidRange = errors.New("reporting: invalid time range")

// CallLister is the read slice of the call repository we need.
type CallLister interface {
	ListByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]calls.Call, error)
}

// Summary aggregates a tenant's calls over a window. Durations cover only
// finished calls; in-flight calls count toward totals but not durations.
type Summary struct {
	TenantID string    `json:"tenant_id"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`

	Total      int                       `json:"total"`
	ByStatus   map[calls.CallStatus]int  `json:"by_status"`
	InProgress int                       `json:"in_progress"`

	TotalDuration   time.Duration `json:"total_duration_ns"`
	AverageDuration time.Duration `json:"average_duration_ns"`
}

type Service struct {
	calls CallLister
}

func NewService(lister CallLister) *Service {
	return &Service{calls: lister}
}

func (s *Service) Summarize(ctx context.Context, tenantID string, from, to time.Time) (Summary, error) {
	if tenantID == "" || !to.After(from) {
		return Summary{}, ErrInvalidRange
	}
	recs, err := s.calls.ListByTenant(ctx, tenantID, from, to)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		TenantID: tenantID,
		From:     from,
		To:       to,
		ByStatus: make(map[calls.CallStatus]int),
	}
	finished := 0
	for _, c := range recs {
		sum.Total++
		sum.ByStatus[c.Status]++
		if c.Status == calls.StatusInProgress {
			sum.InProgress++
			continue
		}
		if c.EndedAt != nil {
			sum.TotalDuration += c.EndedAt.Sub(c.StartedAt)
			finished++
		}
	}
	if finished > 0 {
		sum.AverageDuration = sum.TotalDuration / time.Duration(finished)
	}
	return sum, nil
}
