package sla

import (
	"context"
	"procflow/bizerror"
	"procflow/domain"
	"procflow/domain/approval"
	"procflow/session"

	"github.com/fundwit/go-commons/types"
	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	sweepRobot = &session.Session{
		Identity: session.Identity{ID: 11, Name: "sla-robot", Role: domain.RoleDirector},
		Context:  context.Background(),
	}

	// escalations hit the store, the directory and the notifier, so the
	// sweeper paces itself instead of bursting a whole backlog at once
	limiter = rate.NewLimiter(rate.Limit(10), 1)

	SweepBatchSize = 100

	// wired to the engine at assembly time
	FindBreachedActionsFunc func(limit int, sec *session.Session) ([]domain.ApprovalAction, error)
	EscalateStepFunc        func(actionID types.ID, reason string, sec *session.Session) (*approval.EscalationResult, error)

	SweepOnceFunc = SweepOnce
)

const BreachReason = "sla deadline exceeded"

func StartCron() {
	crontab := cron.New(cron.WithSeconds())
	crontab.AddFunc("0 * * * * ?", func() {
		if err := SweepOnceFunc(); err != nil {
			logrus.Errorf("sla sweep failed: %v", err)
		}
	})
	crontab.Start()
}

// SweepOnce escalate every overdue pending action found in this pass.
// An action decided or escalated by someone else in the meantime is skipped.
func SweepOnce() error {
	actions, err := FindBreachedActionsFunc(SweepBatchSize, sweepRobot)
	if err != nil {
		return err
	}

	for _, action := range actions {
		if err := limiter.Wait(sweepRobot.Context); err != nil {
			return err
		}
		if _, err := EscalateStepFunc(action.ID, BreachReason, sweepRobot); err != nil {
			if err == bizerror.ErrInvalidState || err == bizerror.ErrConflict {
				continue
			}
			logrus.Warnf("escalate overdue action %d failed: %v", action.ID, err)
		}
	}
	return nil
}
