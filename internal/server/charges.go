package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/plantelhq/plantel/pkg/db/pagination"
)

// GET /v1/charges
func (s *Server) ListCharges(c *gin.Context) {
	var query struct {
		pagination.Pagination

		Estado          string `form:"estado"`
		EstudianteID    string `form:"estudianteID"`
		RepresentanteID string `form:"representanteID"`
		AnnoEscolarID   string `form:"annoEscolarID"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		s.AbortWithError(c, invalidRequestError())
		return
	}

	opts := chargedomain.ListOptions{}
	if estado := strings.TrimSpace(query.Estado); estado != "" {
		status := chargedomain.ChargeStatus(estado)
		opts.Status = &status
	}
	if raw := strings.TrimSpace(query.EstudianteID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			s.AbortWithError(c, newValidationError("invalid_student_id", "estudianteID is not a valid id"))
			return
		}
		opts.StudentID = &id
	}
	if raw := strings.TrimSpace(query.RepresentanteID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			s.AbortWithError(c, newValidationError("invalid_representative_id", "representanteID is not a valid id"))
			return
		}
		opts.RepresentativeID = &id
	}
	if raw := strings.TrimSpace(query.AnnoEscolarID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			s.AbortWithError(c, newValidationError("invalid_school_year_id", "annoEscolarID is not a valid id"))
			return
		}
		opts.SchoolYearID = &id
	}

	items, pageInfo, err := s.chargeQuery.List(c.Request.Context(), opts, query.Pagination)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondList(c, items, pageInfo)
}

// POST /v1/charges/enrollment/:id/generate
func (s *Server) GenerateCharges(c *gin.Context) {
	enrollmentID, err := parseID(strings.TrimSpace(c.Param("id")))
	if err != nil {
		s.AbortWithError(c, newValidationError("invalid_enrollment_id", "enrollment id is not valid"))
		return
	}

	created, err := s.generator.GenerateForEnrollment(c.Request.Context(), enrollmentID)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"created": created})
}

// PATCH /v1/charges/:id/report
//
// Multipart form: metodoPagoID (required), referencia, observaciones, and
// an optional "comprobante" receipt file.
func (s *Server) ReportCharge(c *gin.Context) {
	chargeID, err := parseID(strings.TrimSpace(c.Param("id")))
	if err != nil {
		s.AbortWithError(c, newValidationError("invalid_charge_id", "charge id is not valid"))
		return
	}

	methodRaw := strings.TrimSpace(c.PostForm("metodoPagoID"))
	if methodRaw == "" {
		s.AbortWithError(c, newValidationError("missing_payment_method", "metodoPagoID is required"))
		return
	}
	methodID, err := parseID(methodRaw)
	if err != nil {
		s.AbortWithError(c, newValidationError("invalid_payment_method", "metodoPagoID is not a valid id"))
		return
	}

	req := chargedomain.ReportRequest{
		ChargeID:     chargeID,
		MethodID:     methodID,
		Reference:    strings.TrimSpace(c.PostForm("referencia")),
		Observations: strings.TrimSpace(c.PostForm("observaciones")),
	}

	if fh, err := c.FormFile("comprobante"); err == nil && fh != nil {
		f, err := fh.Open()
		if err != nil {
			s.AbortWithError(c, err)
			return
		}
		defer f.Close()
		req.Receipt = &chargedomain.ReceiptUpload{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Reader:   f,
		}
	}

	ch, err := s.workflow.Report(c.Request.Context(), req)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, ch)
}

// PATCH /v1/charges/:id/approve
func (s *Server) ApproveCharge(c *gin.Context) {
	chargeID, err := parseID(strings.TrimSpace(c.Param("id")))
	if err != nil {
		s.AbortWithError(c, newValidationError("invalid_charge_id", "charge id is not valid"))
		return
	}

	ch, err := s.workflow.Approve(c.Request.Context(), chargeID, actorFromContext(c))
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, ch)
}

type rejectChargeRequest struct {
	Observaciones string `json:"observaciones"`
}

// PATCH /v1/charges/:id/reject
func (s *Server) RejectCharge(c *gin.Context) {
	chargeID, err := parseID(strings.TrimSpace(c.Param("id")))
	if err != nil {
		s.AbortWithError(c, newValidationError("invalid_charge_id", "charge id is not valid"))
		return
	}

	var req rejectChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		s.AbortWithError(c, invalidRequestError())
		return
	}

	ch, err := s.workflow.Reject(c.Request.Context(), chargeID, strings.TrimSpace(req.Observaciones), actorFromContext(c))
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, ch)
}
