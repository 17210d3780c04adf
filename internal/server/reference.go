package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
)

// GET /v1/payment-methods
func (s *Server) ListPaymentMethods(c *gin.Context) {
	items, err := s.paymentRepo.ListActiveMethods(c.Request.Context(), s.db)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondList(c, items, nil)
}

// GET /v1/school-years
func (s *Server) ListSchoolYears(c *gin.Context) {
	items, err := s.schoolYearSvc.List(c.Request.Context(), schoolyeardomain.ListOptions{})
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondList(c, items, nil)
}

type createSchoolYearRequest struct {
	Periodo    string `json:"periodo" binding:"required"`
	StartMonth *int   `json:"startMonth"`
	EndMonth   *int   `json:"endMonth"`
}

// POST /v1/school-years
func (s *Server) CreateSchoolYear(c *gin.Context) {
	var req createSchoolYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.AbortWithError(c, invalidRequestError())
		return
	}

	sy, err := s.schoolYearSvc.Create(c.Request.Context(), schoolyeardomain.CreateRequest{
		Periodo:    strings.TrimSpace(req.Periodo),
		StartMonth: req.StartMonth,
		EndMonth:   req.EndMonth,
	})
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, sy)
}
