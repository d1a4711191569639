package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	balancedomain "github.com/smallbiznis/crewpay/internal/balance/domain"
	commissiondomain "github.com/smallbiznis/crewpay/internal/commission/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq int64

func newTestService(t *testing.T) (balancedomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	dsn := fmt.Sprintf("file:balance_svc_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&balancedomain.UserBalance{},
		&balancedomain.Payment{},
		&balancedomain.PaymentCommissionMapping{},
		&commissiondomain.CommissionRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
	return svc, db, node
}

func loadBalance(t *testing.T, db *gorm.DB, userID snowflake.ID) balancedomain.UserBalance {
	t.Helper()
	var row balancedomain.UserBalance
	require.NoError(t, db.Where("user_id = ?", userID).First(&row).Error)
	return row
}

func assertInvariant(t *testing.T, b balancedomain.UserBalance) {
	t.Helper()
	assert.True(t, b.CurrentBalance.Equal(b.TotalCommissionsEarned.Sub(b.TotalPaymentsReceived)),
		"balance %v != earned %v - received %v",
		b.CurrentBalance, b.TotalCommissionsEarned, b.TotalPaymentsReceived)
}

func TestApplyCommissionDelta_AccumulatesSignedDeltas(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	userID := node.Generate()

	require.NoError(t, svc.ApplyCommissionDelta(ctx, nil, userID, decimal.NewFromFloat(100.50)))
	require.NoError(t, svc.ApplyCommissionDelta(ctx, nil, userID, decimal.NewFromFloat(-20.25)))
	// Zero deltas are a no-op, not a row write.
	require.NoError(t, svc.ApplyCommissionDelta(ctx, nil, userID, decimal.Zero))

	row := loadBalance(t, db, userID)
	assert.True(t, decimal.NewFromFloat(80.25).Equal(row.TotalCommissionsEarned))
	assert.True(t, row.TotalPaymentsReceived.IsZero())
	assertInvariant(t, row)

	require.Error(t, svc.ApplyCommissionDelta(ctx, nil, 0, decimal.NewFromInt(1)))
}

func TestCreatePayment_MapsAndMarksPaid(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	userID := node.Generate()

	due := commissiondomain.CommissionRecord{
		ID:               node.Generate(),
		UserID:           userID,
		CustomerID:       node.Generate(),
		CommissionAmount: decimal.NewFromInt(500),
	}
	require.NoError(t, db.Create(&due).Error)
	require.NoError(t, svc.ApplyCommissionDelta(ctx, nil, userID, due.CommissionAmount))

	payment, err := svc.CreatePayment(ctx, balancedomain.CreatePaymentRequest{
		UserID: userID,
		Amount: decimal.NewFromInt(500),
		Type:   "check",
		Date:   time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC),
		Applications: []balancedomain.PaymentApplication{
			{CommissionDueID: due.ID, AmountApplied: decimal.NewFromInt(500)},
		},
	})
	require.NoError(t, err)
	assert.NotZero(t, payment.ID)

	var mapping balancedomain.PaymentCommissionMapping
	require.NoError(t, db.Where("payment_id = ?", payment.ID).First(&mapping).Error)
	assert.Equal(t, due.ID, mapping.CommissionDueID)

	var paid commissiondomain.CommissionRecord
	require.NoError(t, db.Where("id = ?", due.ID).First(&paid).Error)
	assert.True(t, paid.IsPaid)

	row := loadBalance(t, db, userID)
	assert.True(t, decimal.NewFromInt(500).Equal(row.TotalPaymentsReceived))
	assert.True(t, row.CurrentBalance.IsZero())
	assertInvariant(t, row)
}

func TestCreatePayment_PartialApplicationLeavesUnpaid(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	userID := node.Generate()

	due := commissiondomain.CommissionRecord{
		ID:               node.Generate(),
		UserID:           userID,
		CustomerID:       node.Generate(),
		CommissionAmount: decimal.NewFromInt(500),
	}
	require.NoError(t, db.Create(&due).Error)

	_, err := svc.CreatePayment(ctx, balancedomain.CreatePaymentRequest{
		UserID: userID,
		Amount: decimal.NewFromInt(200),
		Date:   time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC),
		Applications: []balancedomain.PaymentApplication{
			{CommissionDueID: due.ID, AmountApplied: decimal.NewFromInt(200)},
		},
	})
	require.NoError(t, err)

	var record commissiondomain.CommissionRecord
	require.NoError(t, db.Where("id = ?", due.ID).First(&record).Error)
	assert.False(t, record.IsPaid)
}

func TestCreatePayment_Validation(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()
	date := time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreatePayment(ctx, balancedomain.CreatePaymentRequest{
		Amount: decimal.NewFromInt(100), Date: date,
	})
	assert.ErrorIs(t, err, balancedomain.ErrInvalidUser)

	_, err = svc.CreatePayment(ctx, balancedomain.CreatePaymentRequest{
		UserID: node.Generate(), Amount: decimal.NewFromInt(-5), Date: date,
	})
	assert.ErrorIs(t, err, balancedomain.ErrInvalidAmount)

	_, err = svc.CreatePayment(ctx, balancedomain.CreatePaymentRequest{
		UserID: node.Generate(), Amount: decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, balancedomain.ErrInvalidDate)

	// Applications exceeding the payment amount are rejected up front.
	_, err = svc.CreatePayment(ctx, balancedomain.CreatePaymentRequest{
		UserID: node.Generate(),
		Amount: decimal.NewFromInt(100),
		Date:   date,
		Applications: []balancedomain.PaymentApplication{
			{CommissionDueID: node.Generate(), AmountApplied: decimal.NewFromInt(150)},
		},
	})
	assert.ErrorIs(t, err, balancedomain.ErrOverApplied)

	// Unknown commission row rolls the whole payment back.
	_, err = svc.CreatePayment(ctx, balancedomain.CreatePaymentRequest{
		UserID: node.Generate(),
		Amount: decimal.NewFromInt(100),
		Date:   date,
		Applications: []balancedomain.PaymentApplication{
			{CommissionDueID: node.Generate(), AmountApplied: decimal.NewFromInt(100)},
		},
	})
	assert.ErrorIs(t, err, balancedomain.ErrUnknownMapping)
}

func TestGetBalance_UntouchedUserIsZero(t *testing.T) {
	svc, _, node := newTestService(t)

	row, err := svc.GetBalance(context.Background(), node.Generate())
	require.NoError(t, err)
	assert.True(t, row.CurrentBalance.IsZero())
	assert.True(t, row.TotalCommissionsEarned.IsZero())

	_, err = svc.GetBalance(context.Background(), 0)
	assert.ErrorIs(t, err, balancedomain.ErrInvalidUser)
}

func TestRecalculate_HealsDriftedBalance(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := context.Background()
	userID := node.Generate()

	records := []commissiondomain.CommissionRecord{
		{ID: node.Generate(), UserID: userID, CustomerID: node.Generate(), CommissionAmount: decimal.NewFromInt(1000)},
		{ID: node.Generate(), UserID: userID, CustomerID: node.Generate(), CommissionAmount: decimal.NewFromInt(250)},
	}
	require.NoError(t, db.Create(&records).Error)
	payment := balancedomain.Payment{
		ID:     node.Generate(),
		UserID: userID,
		Amount: decimal.NewFromInt(300),
		Date:   time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&payment).Error)

	// A drifted row that no longer matches history.
	drifted := balancedomain.UserBalance{
		UserID:                 userID,
		TotalCommissionsEarned: decimal.NewFromInt(99),
		TotalPaymentsReceived:  decimal.NewFromInt(1),
		CurrentBalance:         decimal.NewFromInt(98),
	}
	require.NoError(t, db.Create(&drifted).Error)

	result, err := svc.Recalculate(ctx, userID)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(1250).Equal(result.TotalCommissionsEarned))
	assert.True(t, decimal.NewFromInt(300).Equal(result.TotalPaymentsReceived))
	assert.True(t, decimal.NewFromInt(950).Equal(result.CurrentBalance))

	stored := loadBalance(t, db, userID)
	assert.True(t, decimal.NewFromInt(950).Equal(stored.CurrentBalance))
	assertInvariant(t, stored)
}
