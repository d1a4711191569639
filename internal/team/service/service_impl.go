package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/smallbiznis/crewpay/internal/team/domain"
	userdomain "github.com/smallbiznis/crewpay/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	teamRepo teamdomain.Repository
	userRepo userdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	TeamRepo teamdomain.Repository
	UserRepo userdomain.Repository
}

func NewService(p ServiceParam) teamdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("team.service"),

		teamRepo: p.TeamRepo,
		userRepo: p.UserRepo,
	}
}

// WithTx returns a service bound to the given transaction so batch callers
// can resolve history inside their all-or-nothing commit.
func (s *Service) WithTx(tx *gorm.DB) teamdomain.Service {
	return &Service{
		db:       tx,
		log:      s.log,
		teamRepo: s.teamRepo,
		userRepo: s.userRepo,
	}
}

func (s *Service) MembershipAt(ctx context.Context, userID snowflake.ID, at time.Time) (*teamdomain.MembershipInterval, error) {
	if userID == 0 {
		return nil, teamdomain.ErrInvalidUser
	}

	intervals, err := s.teamRepo.IntervalsCovering(ctx, s.db, userID, at)
	if err != nil {
		return nil, err
	}
	if len(intervals) == 0 {
		return nil, nil
	}

	// The (user, team, joined_at) key should make overlaps impossible, but
	// history written before that constraint existed may still overlap.
	// Latest joined_at wins; repository ordering guarantees it is first.
	if len(intervals) > 1 {
		s.log.Warn("overlapping membership intervals",
			zap.String("user_id", userID.String()),
			zap.Time("as_of", at),
			zap.Int("count", len(intervals)),
		)
	}
	interval := intervals[0]
	return &interval, nil
}

func (s *Service) TeamSnapshotAt(ctx context.Context, teamID snowflake.ID, at time.Time) (teamdomain.Snapshot, error) {
	if teamID == 0 {
		return teamdomain.Snapshot{}, teamdomain.ErrInvalidTeam
	}

	intervals, err := s.teamRepo.TeamIntervalsCovering(ctx, s.db, teamID, at)
	if err != nil {
		return teamdomain.Snapshot{}, err
	}

	snapshot := teamdomain.Snapshot{TeamID: teamID, AsOf: at}
	if len(intervals) == 0 {
		return snapshot, nil
	}

	// One member per user even if overlapping history rows exist; the
	// latest joined_at interval decides the role.
	seen := make(map[snowflake.ID]struct{}, len(intervals))
	userIDs := make([]snowflake.ID, 0, len(intervals))
	roles := make(map[snowflake.ID]teamdomain.Role, len(intervals))
	for _, interval := range intervals {
		if !interval.Covers(at) {
			continue
		}
		if _, dup := seen[interval.UserID]; dup {
			continue
		}
		seen[interval.UserID] = struct{}{}
		userIDs = append(userIDs, interval.UserID)
		roles[interval.UserID] = interval.Role
	}

	users, err := s.userRepo.ListByIDs(ctx, s.db, userIDs)
	if err != nil {
		return teamdomain.Snapshot{}, err
	}
	hireDates := make(map[snowflake.ID]*time.Time, len(users))
	for _, u := range users {
		hireDates[u.ID] = u.HireDate
	}

	for _, userID := range userIDs {
		member := teamdomain.Member{
			UserID:   userID,
			Role:     roles[userID],
			HireDate: hireDates[userID],
		}
		switch member.Role {
		case teamdomain.RoleManager:
			snapshot.Managers = append(snapshot.Managers, member)
		case teamdomain.RoleSalesman:
			snapshot.Salesmen = append(snapshot.Salesmen, member)
		case teamdomain.RoleSupplementer:
			snapshot.Supplementers = append(snapshot.Supplementers, member)
		}
	}
	return snapshot, nil
}

func (s *Service) HistoricalContextFor(ctx context.Context, userID snowflake.ID, at time.Time) (*teamdomain.Context, error) {
	membership, err := s.MembershipAt(ctx, userID, at)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, nil
	}

	snapshot, err := s.TeamSnapshotAt(ctx, membership.TeamID, at)
	if err != nil {
		return nil, err
	}

	return &teamdomain.Context{
		Membership: *membership,
		Snapshot:   snapshot,
	}, nil
}
