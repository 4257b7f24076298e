// Package gc implements the admin-triggered sweep of expired pending
// registration/recovery rows, the same idempotent primitive the
// registration and recovery FSMs invoke opportunistically inline.
package gc

import (
	"context"
	"time"

	"github.com/lumicast/core/internal/apperror"
	"github.com/lumicast/core/internal/exec"
	"github.com/lumicast/core/internal/store"
)

// Service runs the expired-pending sweep.
type Service struct {
	store store.Store
	pool  *exec.Pool
}

// New builds a gc Service.
func New(st store.Store, pool *exec.Pool) *Service {
	return &Service{store: st, pool: pool}
}

// Result is the count of rows removed from each pending table.
type Result struct {
	CountInactiveRegistr int64
	CountInactiveRecover int64
}

// ClearExpired deletes every pending registration/recovery row whose
// final_date has passed. Safe to call repeatedly; a second call over an
// already-swept table returns zero counts.
func (s *Service) ClearExpired(ctx context.Context) (*Result, error) {
	var res Result
	now := time.Now()

	err := s.pool.Run(ctx, func(ctx context.Context) error {
		n, err := s.store.DeletePendingRegistrationsBefore(ctx, now)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		res.CountInactiveRegistr = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.pool.Run(ctx, func(ctx context.Context) error {
		n, err := s.store.DeletePendingRecoveriesBefore(ctx, now)
		if err != nil {
			return apperror.New(apperror.KindDatabase, apperror.CodeDatabaseFailure, err.Error())
		}
		res.CountInactiveRecover = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &res, nil
}
