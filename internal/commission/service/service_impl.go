package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/crewpay/internal/audit/domain"
	balancedomain "github.com/smallbiznis/crewpay/internal/balance/domain"
	commissiondomain "github.com/smallbiznis/crewpay/internal/commission/domain"
	"github.com/smallbiznis/crewpay/internal/commission/engine"
	"github.com/smallbiznis/crewpay/internal/config"
	jobdomain "github.com/smallbiznis/crewpay/internal/job/domain"
	obsmetrics "github.com/smallbiznis/crewpay/internal/observability/metrics"
	teamdomain "github.com/smallbiznis/crewpay/internal/team/domain"
	userdomain "github.com/smallbiznis/crewpay/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Amounts within one cent of the stored value are rounding noise, not a
// real change.
var amountTolerance = decimal.New(1, -2)

const maxReportedWarnings = 50

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	plans      *config.PlanHolder
	jobRepo    jobdomain.Repository
	userRepo   userdomain.Repository
	commRepo   commissiondomain.Repository
	teamSvc    teamdomain.Service
	balanceSvc balancedomain.Service
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Plans      *config.PlanHolder
	JobRepo    jobdomain.Repository
	UserRepo   userdomain.Repository
	CommRepo   commissiondomain.Repository
	TeamSvc    teamdomain.Service
	BalanceSvc balancedomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewService(p Params) commissiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("commission.service"),
		genID:      p.GenID,
		plans:      p.Plans,
		jobRepo:    p.JobRepo,
		userRepo:   p.UserRepo,
		commRepo:   p.CommRepo,
		teamSvc:    p.TeamSvc,
		balanceSvc: p.BalanceSvc,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) ReconcileJob(ctx context.Context, jobID snowflake.ID) (commissiondomain.BatchResult, error) {
	if jobID == 0 {
		return commissiondomain.BatchResult{}, jobdomain.ErrInvalidID
	}
	job, err := s.jobRepo.FindByID(ctx, s.db, jobID)
	if err != nil {
		return commissiondomain.BatchResult{}, err
	}
	if job == nil {
		return commissiondomain.BatchResult{}, commissiondomain.ErrJobUnknown
	}
	if job.Status != jobdomain.StatusFinalized {
		return commissiondomain.BatchResult{}, jobdomain.ErrNotFinalized
	}
	return s.reconcile(ctx, []jobdomain.Job{*job})
}

func (s *Service) ReconcileJobs(ctx context.Context, jobIDs []snowflake.ID) (commissiondomain.BatchResult, error) {
	ids := dedupe(jobIDs)
	if len(ids) == 0 {
		return commissiondomain.BatchResult{}, commissiondomain.ErrNoJobs
	}

	jobs, err := s.jobRepo.ListByIDs(ctx, s.db, ids)
	if err != nil {
		return commissiondomain.BatchResult{}, err
	}

	finalized := make([]jobdomain.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Status == jobdomain.StatusFinalized {
			finalized = append(finalized, job)
		}
	}
	return s.reconcile(ctx, finalized)
}

// ReconcileFinalized is the scheduler entry point: sweep jobs finalized or
// re-finalized since the watermark and reconcile them in one batch.
func (s *Service) ReconcileFinalized(ctx context.Context, since time.Time, limit int) (commissiondomain.BatchResult, error) {
	jobs, err := s.jobRepo.ListFinalizedUpdatedSince(ctx, s.db, since, limit)
	if err != nil {
		return commissiondomain.BatchResult{}, err
	}
	if len(jobs) == 0 {
		return commissiondomain.BatchResult{Status: commissiondomain.BatchAllSucceeded}, nil
	}
	return s.reconcile(ctx, jobs)
}

type task struct {
	job    jobdomain.Job
	userID snowflake.ID
	slot   jobdomain.RoleSlot
}

type recordKey struct {
	customerID snowflake.ID
	userID     snowflake.ID
}

func (s *Service) reconcile(ctx context.Context, jobs []jobdomain.Job) (commissiondomain.BatchResult, error) {
	result := commissiondomain.BatchResult{Jobs: len(jobs)}
	if len(jobs) == 0 {
		result.Status = commissiondomain.BatchAllSucceeded
		return result, nil
	}

	plan := s.plans.Current()

	var tasks []task
	jobIDs := make([]snowflake.ID, 0, len(jobs))
	userIDSet := make(map[snowflake.ID]struct{})
	for _, job := range jobs {
		jobIDs = append(jobIDs, job.ID)
		for _, a := range job.Assignments() {
			tasks = append(tasks, task{job: job, userID: a.UserID, slot: a.Slot})
			userIDSet[a.UserID] = struct{}{}
		}
	}
	result.Tasks = len(tasks)

	warningCount := 0
	addWarning := func(t task, code, message string) {
		warningCount++
		s.obsMetrics.RecordWarnings(1)
		if len(result.Warnings) >= maxReportedWarnings {
			result.WarningsTruncated++
			return
		}
		result.Warnings = append(result.Warnings, commissiondomain.TaskWarning{
			JobID:   t.job.ID,
			UserID:  t.userID,
			Slot:    t.slot,
			Code:    code,
			Message: message,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		teamSvc := s.teamSvc.WithTx(tx)

		users, err := s.userRepo.ListByIDs(ctx, tx, keys(userIDSet))
		if err != nil {
			return err
		}
		usersByID := make(map[snowflake.ID]userdomain.User, len(users))
		for _, u := range users {
			usersByID[u.ID] = u
		}

		existingRows, err := s.commRepo.ListByJobIDs(ctx, tx, jobIDs)
		if err != nil {
			return err
		}
		existing := make(map[recordKey]commissiondomain.CommissionRecord, len(existingRows))
		for _, row := range existingRows {
			existing[recordKey{customerID: row.CustomerID, userID: row.UserID}] = row
		}

		now := time.Now().UTC()
		deltas := make(map[snowflake.ID]decimal.Decimal)

		for _, t := range tasks {
			user, ok := usersByID[t.userID]
			if !ok {
				result.Failed++
				s.obsMetrics.RecordTask("failed")
				addWarning(t, "missing_user", "assigned user does not exist")
				continue
			}

			record, hasRecord := existing[recordKey{customerID: t.job.ID, userID: t.userID}]
			if hasRecord && record.AdminModified {
				// Admin overrides win over recompute, permanently, until
				// the flag is explicitly cleared.
				result.SkippedAdmin++
				s.obsMetrics.RecordTask("skipped_admin")
				continue
			}

			var teamCtx *teamdomain.Context
			if user.Role == userdomain.RoleSalesManager || user.Role == userdomain.RoleSupplementManager {
				teamCtx, err = teamSvc.HistoricalContextFor(ctx, user.ID, t.job.CreatedDate)
				if err != nil {
					return err
				}
			}

			outcome := engine.Compute(engine.Input{
				User: user,
				Job:  t.job,
				Team: teamCtx,
				Plan: plan,
			})
			for _, code := range outcome.Warnings {
				addWarning(t, code, "")
			}
			amount := outcome.Amount

			switch {
			case !hasRecord && amount.IsPositive():
				create := commissiondomain.CommissionRecord{
					ID:               s.genID.Generate(),
					UserID:           t.userID,
					CustomerID:       t.job.ID,
					CommissionAmount: amount,
					BuildDate:        t.job.BuildDate,
					CreatedAt:        now,
					UpdatedAt:        now,
				}
				if err := tx.WithContext(ctx).Create(&create).Error; err != nil {
					return err
				}
				existing[recordKey{customerID: t.job.ID, userID: t.userID}] = create
				deltas[t.userID] = deltas[t.userID].Add(amount)
				result.Created++
				s.obsMetrics.RecordTask("created")

			case hasRecord && amount.Sub(record.CommissionAmount).Abs().GreaterThan(amountTolerance):
				if err := tx.WithContext(ctx).
					Model(&commissiondomain.CommissionRecord{}).
					Where("id = ?", record.ID).
					Updates(map[string]any{
						"commission_amount": amount,
						"updated_at":        now,
					}).Error; err != nil {
					return err
				}
				deltas[t.userID] = deltas[t.userID].Add(amount.Sub(record.CommissionAmount))
				result.Updated++
				s.obsMetrics.RecordTask("updated")

			case hasRecord:
				result.Unchanged++
				s.obsMetrics.RecordTask("unchanged")

			default:
				// Zero or negative with no stored row: never create
				// zero-amount commission records.
				s.obsMetrics.RecordTask("zero")
			}
		}

		// Fold deltas to one additive write per user so two tasks touching
		// the same balance never race each other.
		userIDs := make([]snowflake.ID, 0, len(deltas))
		for userID := range deltas {
			userIDs = append(userIDs, userID)
		}
		sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
		for _, userID := range userIDs {
			if deltas[userID].IsZero() {
				continue
			}
			if err := s.balanceSvc.ApplyCommissionDelta(ctx, tx, userID, deltas[userID]); err != nil {
				return err
			}
			result.UsersAffected++
		}

		return nil
	})
	if err != nil {
		result.Status = commissiondomain.BatchHardFailure
		s.obsMetrics.RecordBatch(string(result.Status))
		return result, err
	}

	if result.Failed > 0 {
		result.Status = commissiondomain.BatchPartialSuccess
	} else {
		result.Status = commissiondomain.BatchAllSucceeded
	}
	s.obsMetrics.RecordBatch(string(result.Status))

	if s.auditSvc != nil && (result.Created > 0 || result.Updated > 0) {
		if err := s.auditSvc.AuditLog(ctx, "", "commission.batch_reconciled", "job_batch", nil, map[string]any{
			"jobs":    result.Jobs,
			"created": result.Created,
			"updated": result.Updated,
		}); err != nil {
			s.log.Warn("failed to write batch audit log", zap.Error(err))
		}
	}

	s.log.Info("reconciliation batch finished",
		zap.Int("jobs", result.Jobs),
		zap.Int("tasks", result.Tasks),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped_admin", result.SkippedAdmin),
		zap.Int("failed", result.Failed),
		zap.Int("warnings", warningCount),
	)
	return result, nil
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID, limit, offset int) ([]commissiondomain.CommissionRecord, int64, error) {
	if userID == 0 {
		return nil, 0, userdomain.ErrInvalidID
	}
	return s.commRepo.ListByUserID(ctx, s.db, userID, limit, offset)
}

func dedupe(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func keys(set map[snowflake.ID]struct{}) []snowflake.ID {
	out := make([]snowflake.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
