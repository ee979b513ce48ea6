package service

import (
	"context"
	"fmt"
	"time"

	"github.com/reyschwartz19/OpTracker/internal/model"
	"github.com/reyschwartz19/OpTracker/internal/repository"
)

const (
	dashboardRecentLimit   = 5
	dashboardUpcomingLimit = 5
	dashboardUpcomingDays  = 30
)

type DashboardStats struct {
	Total      int `json:"total"`
	Interested int `json:"interested"`
	InProgress int `json:"inProgress"`
	Submitted  int `json:"submitted"`
	Accepted   int `json:"accepted"`
}

type Dashboard struct {
	Stats    DashboardStats       `json:"stats"`
	Recent   []*model.Opportunity `json:"recentOpportunities"`
	Upcoming []*model.Opportunity `json:"upcomingDeadlines"`
}

type DashboardService struct {
	repo repository.OpportunityRepository
	now  func() time.Time
}

func NewDashboardService(repo repository.OpportunityRepository) *DashboardService {
	return &DashboardService{
		repo: repo,
		now:  time.Now,
	}
}

func (s *DashboardService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	counts, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count opportunities: %w", err)
	}

	stats := DashboardStats{
		Interested: counts[model.StatusInterested],
		InProgress: counts[model.StatusInProgress],
		Submitted:  counts[model.StatusSubmitted],
		Accepted:   counts[model.StatusAccepted],
	}
	for _, n := range counts {
		stats.Total += n
	}

	recent, err := s.repo.Opportunities(ctx, userID, repository.OpportunityFilter{
		SortBy: repository.OpportunitySortRecent,
		Limit:  dashboardRecentLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent opportunities: %w", err)
	}

	now := s.now().UTC()
	until := now.AddDate(0, 0, dashboardUpcomingDays)
	upcoming, err := s.repo.Opportunities(ctx, userID, repository.OpportunityFilter{
		ExcludeStatuses: []model.Status{model.StatusArchived, model.StatusRejected, model.StatusAccepted},
		DeadlineFrom:    &now,
		DeadlineTo:      &until,
		SortBy:          repository.OpportunitySortDeadline,
		Limit:           dashboardUpcomingLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming deadlines: %w", err)
	}

	return &Dashboard{
		Stats:    stats,
		Recent:   nonNil(recent),
		Upcoming: nonNil(upcoming),
	}, nil
}

// Calendar lists opportunities with a deadline, soonest first. month
// ("2006-01") narrows to one calendar month in UTC.
func (s *DashboardService) Calendar(ctx context.Context, userID, month string) ([]*model.Opportunity, error) {
	filter := repository.OpportunityFilter{
		ExcludeStatuses: []model.Status{model.StatusArchived, model.StatusRejected},
		HasDeadline:     true,
		SortBy:          repository.OpportunitySortDeadline,
	}

	if month != "" {
		start, err := time.Parse("2006-01", month)
		if err != nil {
			return nil, invalid("month", "month must be formatted YYYY-MM")
		}
		end := start.AddDate(0, 1, 0)
		filter.DeadlineFrom = &start
		filter.DeadlineTo = &end
	}

	opps, err := s.repo.Opportunities(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}
	return nonNil(opps), nil
}

func nonNil(opps []*model.Opportunity) []*model.Opportunity {
	if opps == nil {
		return []*model.Opportunity{}
	}
	return opps
}
