package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/crewpay/pkg/db/pagination"
)

func (s *Server) RecalculateJob(c *gin.Context) {
	jobID, err := parseID(c.Param("jobId"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.commissionSvc.ReconcileJob(c.Request.Context(), jobID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

type processBatchRequest struct {
	JobIDs []string `json:"job_ids"`
}

func (s *Server) ProcessBatch(c *gin.Context) {
	var req processBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	jobIDs := make([]snowflake.ID, 0, len(req.JobIDs))
	for _, raw := range req.JobIDs {
		id, err := parseID(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		jobIDs = append(jobIDs, id)
	}

	result, err := s.commissionSvc.ReconcileJobs(c.Request.Context(), jobIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ListUserCommissions(c *gin.Context) {
	userID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if _, err := s.loadUser(c, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	records, total, err := s.commissionSvc.ListByUser(c.Request.Context(), userID, page.Limit(), page.Offset())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"commissions": records,
		"page_info": pagination.PageInfo{
			NextPageToken: page.NextToken(len(records), total),
			TotalSize:     total,
		},
	}})
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, ErrInvalidRequest
	}
	return id, nil
}
