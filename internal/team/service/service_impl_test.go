package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	teamdomain "github.com/smallbiznis/crewpay/internal/team/domain"
	teamrepo "github.com/smallbiznis/crewpay/internal/team/repository"
	userdomain "github.com/smallbiznis/crewpay/internal/user/domain"
	userrepo "github.com/smallbiznis/crewpay/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq int64

func newTestService(t *testing.T) (teamdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	dsn := fmt.Sprintf("file:team_svc_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&teamdomain.MembershipInterval{},
	))
	require.NoError(t, db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_memberships_open ON team_membership_intervals (user_id, team_id) WHERE left_at IS NULL",
	).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := NewService(ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		TeamRepo: teamrepo.New(),
		UserRepo: userrepo.New(),
	})
	return svc, db, node
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	v := day(y, m, d)
	return &v
}

func seedInterval(t *testing.T, db *gorm.DB, node *snowflake.Node, userID, teamID snowflake.ID, role teamdomain.Role, joined time.Time, left *time.Time) {
	t.Helper()
	interval := teamdomain.MembershipInterval{
		ID:       node.Generate(),
		UserID:   userID,
		TeamID:   teamID,
		Role:     role,
		JoinedAt: joined,
		LeftAt:   left,
	}
	require.NoError(t, db.Create(&interval).Error)
}

func TestMembershipAt_ResolvesAsOfDate(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	userID := node.Generate()
	teamID := node.Generate()
	seedInterval(t, db, node, userID, teamID, teamdomain.RoleSalesman,
		day(2023, time.January, 1), dayPtr(2023, time.June, 1))

	inside, err := svc.MembershipAt(ctx, userID, day(2023, time.March, 1))
	require.NoError(t, err)
	require.NotNil(t, inside)
	assert.Equal(t, teamID, inside.TeamID)

	// Left before the query date: no membership, and that is not an error.
	after, err := svc.MembershipAt(ctx, userID, day(2023, time.July, 1))
	require.NoError(t, err)
	assert.Nil(t, after)

	// Before joining.
	before, err := svc.MembershipAt(ctx, userID, day(2022, time.December, 31))
	require.NoError(t, err)
	assert.Nil(t, before)

	_, err = svc.MembershipAt(ctx, 0, day(2023, time.March, 1))
	assert.ErrorIs(t, err, teamdomain.ErrInvalidUser)
}

func TestMembershipAt_LeaveAndRejoin(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	userID := node.Generate()
	oldTeam := node.Generate()
	newTeam := node.Generate()
	seedInterval(t, db, node, userID, oldTeam, teamdomain.RoleSalesman,
		day(2022, time.January, 1), dayPtr(2023, time.March, 1))
	seedInterval(t, db, node, userID, newTeam, teamdomain.RoleManager,
		day(2023, time.September, 1), nil)

	// A date inside the gap between stints has no team.
	gap, err := svc.MembershipAt(ctx, userID, day(2023, time.June, 1))
	require.NoError(t, err)
	assert.Nil(t, gap)

	current, err := svc.MembershipAt(ctx, userID, day(2023, time.October, 1))
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, newTeam, current.TeamID)
	assert.Equal(t, teamdomain.RoleManager, current.Role)

	old, err := svc.MembershipAt(ctx, userID, day(2022, time.June, 1))
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Equal(t, oldTeam, old.TeamID)
}

func TestOpenIntervalUniquePerUserTeam(t *testing.T) {
	_, db, node := newTestService(t)

	userID := node.Generate()
	teamID := node.Generate()
	seedInterval(t, db, node, userID, teamID, teamdomain.RoleSalesman,
		day(2023, time.January, 1), nil)

	// A second open interval for the same (user, team) violates the schema
	// guard even though its joined_at differs.
	second := teamdomain.MembershipInterval{
		ID:       node.Generate(),
		UserID:   userID,
		TeamID:   teamID,
		Role:     teamdomain.RoleSalesman,
		JoinedAt: day(2023, time.April, 1),
	}
	require.Error(t, db.Create(&second).Error)

	var count int64
	require.NoError(t, db.Model(&teamdomain.MembershipInterval{}).
		Where("user_id = ? AND team_id = ? AND left_at IS NULL", userID, teamID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Closing the first stint makes room for a re-join.
	require.NoError(t, db.Model(&teamdomain.MembershipInterval{}).
		Where("user_id = ? AND team_id = ? AND left_at IS NULL", userID, teamID).
		Update("left_at", day(2023, time.March, 1)).Error)
	require.NoError(t, db.Create(&second).Error)
}

func TestMembershipAt_OverlapLatestJoinWins(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	userID := node.Generate()
	first := node.Generate()
	second := node.Generate()
	// Legacy data written before the uniqueness constraint can overlap.
	seedInterval(t, db, node, userID, first, teamdomain.RoleSalesman,
		day(2023, time.January, 1), nil)
	seedInterval(t, db, node, userID, second, teamdomain.RoleSalesman,
		day(2023, time.April, 1), nil)

	membership, err := svc.MembershipAt(ctx, userID, day(2023, time.May, 1))
	require.NoError(t, err)
	require.NotNil(t, membership)
	assert.Equal(t, second, membership.TeamID)
}

func TestTeamSnapshotAt_PartitionsByRole(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	teamID := node.Generate()
	manager := userdomain.User{ID: node.Generate(), Role: userdomain.RoleSalesManager, HireDate: dayPtr(2020, time.January, 1)}
	salesman := userdomain.User{ID: node.Generate(), Role: userdomain.RoleSalesman, HireDate: dayPtr(2023, time.January, 1)}
	supplementer := userdomain.User{ID: node.Generate(), Role: userdomain.RoleSupplementer, HireDate: dayPtr(2022, time.June, 1)}
	departed := userdomain.User{ID: node.Generate(), Role: userdomain.RoleSalesman, HireDate: dayPtr(2021, time.January, 1)}
	require.NoError(t, db.Create(&[]userdomain.User{manager, salesman, supplementer, departed}).Error)

	seedInterval(t, db, node, manager.ID, teamID, teamdomain.RoleManager, day(2022, time.January, 1), nil)
	seedInterval(t, db, node, salesman.ID, teamID, teamdomain.RoleSalesman, day(2023, time.January, 1), nil)
	seedInterval(t, db, node, supplementer.ID, teamID, teamdomain.RoleSupplementer, day(2022, time.June, 1), nil)
	seedInterval(t, db, node, departed.ID, teamID, teamdomain.RoleSalesman, day(2021, time.January, 1), dayPtr(2023, time.February, 1))

	snapshot, err := svc.TeamSnapshotAt(ctx, teamID, day(2023, time.October, 1))
	require.NoError(t, err)

	assert.Len(t, snapshot.Managers, 1)
	assert.Len(t, snapshot.Salesmen, 1)
	assert.Len(t, snapshot.Supplementers, 1)

	member, ok := snapshot.Salesman(salesman.ID)
	require.True(t, ok)
	require.NotNil(t, member.HireDate)
	assert.Equal(t, day(2023, time.January, 1), member.HireDate.UTC())

	_, ok = snapshot.Salesman(departed.ID)
	assert.False(t, ok)
}

func TestHistoricalContextFor(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()

	userID := node.Generate()
	teamID := node.Generate()
	user := userdomain.User{ID: userID, Role: userdomain.RoleSalesManager}
	require.NoError(t, db.Create(&user).Error)
	seedInterval(t, db, node, userID, teamID, teamdomain.RoleManager, day(2022, time.January, 1), nil)

	teamCtx, err := svc.HistoricalContextFor(ctx, userID, day(2023, time.October, 1))
	require.NoError(t, err)
	require.NotNil(t, teamCtx)
	assert.Equal(t, teamID, teamCtx.Membership.TeamID)
	assert.Equal(t, teamID, teamCtx.Snapshot.TeamID)
	assert.Len(t, teamCtx.Snapshot.Managers, 1)

	// No membership resolves to nil context, nil error.
	none, err := svc.HistoricalContextFor(ctx, node.Generate(), day(2023, time.October, 1))
	require.NoError(t, err)
	assert.Nil(t, none)
}
