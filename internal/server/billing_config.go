package server

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	"github.com/shopspring/decimal"
)

// The upsert payload historically came in two shapes: flat mora fields or
// a nested mora object. Both are decoded here into the one canonical
// configdomain.UpdateRequest; the engine never branches on payload shape.
type moraPatch struct {
	Tasa           *decimal.Decimal `json:"tasa"`
	DiasGracia     *int             `json:"diasGracia"`
	TopePorcentaje *decimal.Decimal `json:"topePorcentaje"`
}

// nullableTime distinguishes an absent field (keep the stored value) from
// an explicit JSON null (clear it).
type nullableTime struct {
	Set   bool
	Value *time.Time
}

func (n *nullableTime) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}

type putBillingConfigRequest struct {
	PrecioUSD  *decimal.Decimal `json:"precioUSD"`
	PrecioBs   *decimal.Decimal `json:"precioBs"`
	TasaMora   *decimal.Decimal `json:"tasaMora"`
	DiasGracia *int             `json:"diasGracia"`
	TopeMora   *decimal.Decimal `json:"topeMora"`
	FechaCorte nullableTime     `json:"fechaCorte"`
	Mora       *moraPatch       `json:"mora"`
}

func (r putBillingConfigRequest) toUpdate() configdomain.UpdateRequest {
	upd := configdomain.UpdateRequest{
		PrimaryPrice:   r.PrecioUSD,
		SecondaryPrice: r.PrecioBs,
		MoraRate:       r.TasaMora,
		GraceDays:      r.DiasGracia,
		MoraCap:        r.TopeMora,
	}
	if r.FechaCorte.Set {
		if r.FechaCorte.Value == nil {
			upd.ClearCutoff = true
		} else {
			upd.CutoffDate = r.FechaCorte.Value
		}
	}
	// The nested shape wins when both are present.
	if r.Mora != nil {
		upd.MoraRate = r.Mora.Tasa
		upd.GraceDays = r.Mora.DiasGracia
		upd.MoraCap = r.Mora.TopePorcentaje
	}
	return upd
}

// GET /v1/billing-config
func (s *Server) GetBillingConfig(c *gin.Context) {
	view, err := s.configSvc.GetActive(c.Request.Context())
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, view)
}

// PUT /v1/billing-config
//
// Upserts the active configuration. Propagation to charges is never a side
// effect here; administrators call update-prices or freeze-month for that.
func (s *Server) PutBillingConfig(c *gin.Context) {
	var req putBillingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.AbortWithError(c, invalidRequestError())
		return
	}

	view, err := s.configSvc.SetActive(c.Request.Context(), req.toUpdate())
	if err != nil {
		s.AbortWithError(c, err)
		return
	}

	s.audit.Record(c.Request.Context(), actorFromContext(c), "billing_config.update", "billing_configuration", nil, map[string]any{
		"version": view.Version,
	})
	respondData(c, view)
}

type updatePricesRequest struct {
	Mes            *int    `json:"mes"`
	Anio           *int    `json:"anio"`
	SchoolYearID   *string `json:"schoolYearId"`
	SyncMoraParams *bool   `json:"syncMoraParams"`
}

// POST /v1/billing-config/update-prices
func (s *Server) UpdatePrices(c *gin.Context) {
	var req updatePricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.AbortWithError(c, invalidRequestError())
		return
	}

	sync := chargedomain.SyncRequest{
		Month:          req.Mes,
		Year:           req.Anio,
		SyncMoraParams: true,
		Actor:          actorFromContext(c),
	}
	if req.SyncMoraParams != nil {
		sync.SyncMoraParams = *req.SyncMoraParams
	}
	if req.SchoolYearID != nil {
		id, err := parseID(*req.SchoolYearID)
		if err != nil {
			s.AbortWithError(c, newValidationError("invalid_school_year_id", "schoolYearId is not a valid id"))
			return
		}
		sync.SchoolYearID = &id
	}

	result, err := s.snapshotSvc.SyncPrices(c.Request.Context(), sync)
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, result)
}

type freezeMonthRequest struct {
	Mes          *int   `json:"mes" binding:"required"`
	Anio         *int   `json:"anio" binding:"required"`
	SchoolYearID string `json:"schoolYearId" binding:"required"`
}

// POST /v1/billing-config/freeze-month
func (s *Server) FreezeMonth(c *gin.Context) {
	var req freezeMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.AbortWithError(c, invalidRequestError())
		return
	}

	syID, err := parseID(strings.TrimSpace(req.SchoolYearID))
	if err != nil {
		s.AbortWithError(c, newValidationError("invalid_school_year_id", "schoolYearId is not a valid id"))
		return
	}

	affected, err := s.snapshotSvc.Freeze(c.Request.Context(), chargedomain.FreezeRequest{
		Month:        *req.Mes,
		Year:         *req.Anio,
		SchoolYearID: syID,
		Actor:        actorFromContext(c),
	})
	if err != nil {
		s.AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"affected": affected})
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(raw)
}
