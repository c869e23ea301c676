package service

import (
	"context"

	"github.com/LarryDahl/TODOv2/internal/clock"
	"github.com/LarryDahl/TODOv2/internal/model"
	"github.com/LarryDahl/TODOv2/internal/repository"
)

// StatsService answers "how am I doing" questions from the lifecycle and
// progress logs.
type StatsService struct {
	statsRepo *repository.StatsRepository
	clk       clock.Clock
}

func NewStatsService(statsRepo *repository.StatsRepository, clk clock.Clock) *StatsService {
	return &StatsService{statsRepo: statsRepo, clk: clk}
}

func (s *StatsService) Statistics(ctx context.Context, user *model.User, days int) (*repository.Statistics, error) {
	if days <= 0 {
		days = 7
	}
	return s.statsRepo.Statistics(ctx, user.ID, days, s.clk.Now())
}

// DailyProgress is a 0-100 score of today's completions.
func (s *StatsService) DailyProgress(ctx context.Context, user *model.User) (int, error) {
	return s.statsRepo.DailyProgress(ctx, user.ID, s.clk.Now())
}
