// Package admin backs the operator endpoints: usage overview, user list,
// revision history and account removal.
package admin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"reign/internal/auth"
	"reign/internal/docsync"
)

const activeWindow = 7 * 24 * time.Hour

type Overview struct {
	Users             int     `json:"users"`
	ActiveUsers7d     int     `json:"activeUsers7d"`
	Documents         int64   `json:"documents"`
	Revisions         int64   `json:"revisions"`
	TotalTasks        int     `json:"totalTasks"`
	CompletedTasks    int     `json:"completedTasks"`
	AvgCompletionRate float64 `json:"avgCompletionRate"`
}

type UserSummary struct {
	auth.User
	Stats *UserStats `json:"stats,omitempty"`
}

type Service struct {
	Users auth.Users
	Docs  docsync.Repository
	Stats StatsStore
	Clock clockwork.Clock
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) Overview(ctx context.Context) (Overview, error) {
	users, err := s.Users.List(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list users: %w", err)
	}
	stats, err := s.Stats.List(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list stats: %w", err)
	}
	docs, revs, err := s.Docs.Counts(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("count documents: %w", err)
	}

	o := Overview{Users: len(users), Documents: docs, Revisions: revs}
	since := s.now().Add(-activeWindow)
	rateSum := 0
	for _, st := range stats {
		if st.LastSyncedAt.After(since) {
			o.ActiveUsers7d++
		}
		o.TotalTasks += st.TotalTasks
		o.CompletedTasks += st.CompletedTasks
		rateSum += st.CompletionRate
	}
	if len(stats) > 0 {
		o.AvgCompletionRate = math.Round(float64(rateSum)/float64(len(stats))*10) / 10
	}
	return o, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	stats, err := s.Stats.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	byUser := make(map[uint64]UserStats, len(stats))
	for _, st := range stats {
		byUser[st.UserID] = st
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		sum := UserSummary{User: u}
		if st, ok := byUser[u.ID]; ok {
			sum.Stats = &st
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *Service) Revisions(ctx context.Context, userID uint64, limit int) ([]docsync.Revision, error) {
	if _, err := s.Users.ByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.Docs.Revisions(ctx, userID, limit)
}

// DeleteUser removes the account along with its documents and stats.
func (s *Service) DeleteUser(ctx context.Context, userID uint64) error {
	if _, err := s.Users.ByID(ctx, userID); err != nil {
		return err
	}
	if err := s.Docs.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	if err := s.Stats.Delete(ctx, userID); err != nil && !errors.Is(err, ErrNoStats) {
		return fmt.Errorf("delete stats: %w", err)
	}
	return s.Users.Delete(ctx, userID)
}
