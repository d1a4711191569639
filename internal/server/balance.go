package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	balancedomain "github.com/smallbiznis/crewpay/internal/balance/domain"
	userdomain "github.com/smallbiznis/crewpay/internal/user/domain"
)

// loadUser resolves a user through the read-through cache; users are
// reference data on this surface.
func (s *Server) loadUser(c *gin.Context, userID snowflake.ID) (userdomain.User, error) {
	return s.userCache.Get(userID, func() (userdomain.User, error) {
		user, err := s.userRepo.FindByID(c.Request.Context(), s.db, userID)
		if err != nil {
			return userdomain.User{}, err
		}
		if user == nil {
			return userdomain.User{}, userdomain.ErrNotFound
		}
		return *user, nil
	})
}

func (s *Server) GetUserBalance(c *gin.Context) {
	userID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if _, err := s.loadUser(c, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.balanceSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": balance})
}

func (s *Server) RecalculateUserBalance(c *gin.Context) {
	userID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if _, err := s.loadUser(c, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.balanceSvc.Recalculate(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": balance})
}

type paymentApplicationRequest struct {
	CommissionDueID string  `json:"commission_due_id"`
	AmountApplied   float64 `json:"amount_applied"`
}

type createPaymentRequest struct {
	UserID       string                      `json:"user_id"`
	Amount       float64                     `json:"amount"`
	Type         string                      `json:"type"`
	Date         string                      `json:"date"`
	Notes        string                      `json:"notes"`
	Applications []paymentApplicationRequest `json:"applications"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	userID, err := parseID(req.UserID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if _, err := s.loadUser(c, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		AbortWithError(c, balancedomain.ErrInvalidDate)
		return
	}

	applications := make([]balancedomain.PaymentApplication, 0, len(req.Applications))
	for _, app := range req.Applications {
		dueID, err := parseID(app.CommissionDueID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		applications = append(applications, balancedomain.PaymentApplication{
			CommissionDueID: dueID,
			AmountApplied:   decimal.NewFromFloat(app.AmountApplied),
		})
	}

	payment, err := s.balanceSvc.CreatePayment(c.Request.Context(), balancedomain.CreatePaymentRequest{
		UserID:       userID,
		Amount:       decimal.NewFromFloat(req.Amount),
		Type:         req.Type,
		Date:         date,
		Notes:        req.Notes,
		Applications: applications,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}
