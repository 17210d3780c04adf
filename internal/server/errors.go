package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	configdomain "github.com/plantelhq/plantel/internal/billingconfig/domain"
	chargedomain "github.com/plantelhq/plantel/internal/charge/domain"
	enrollmentdomain "github.com/plantelhq/plantel/internal/enrollment/domain"
	paymentdomain "github.com/plantelhq/plantel/internal/payment/domain"
	schoolyeardomain "github.com/plantelhq/plantel/internal/schoolyear/domain"
)

// HTTPError is the wire shape of a failed request.
type HTTPError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string { return e.Code }

func invalidRequestError() *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "malformed request payload"}
}

func newValidationError(code, message string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Code: code, Message: message}
}

var errUnauthorized = &HTTPError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "missing or invalid credentials"}

// Domain sentinels mapped onto the client error taxonomy: validation
// failures are 400s with a readable message, lookups that missed are 404s,
// anything else is a generic 500 with the detail kept in the logs.
var errorStatus = map[error]*HTTPError{
	chargedomain.ErrChargeAlreadyPaid:       {Status: http.StatusBadRequest, Code: "charge_already_paid", Message: "the charge has already been paid"},
	chargedomain.ErrChargeNotPending:        {Status: http.StatusBadRequest, Code: "charge_not_pending", Message: "only a pending charge can be reported"},
	chargedomain.ErrChargeNotReported:       {Status: http.StatusBadRequest, Code: "charge_not_reported", Message: "the charge has not been reported"},
	chargedomain.ErrMonthOutOfCalendar:      {Status: http.StatusBadRequest, Code: "month_out_of_calendar", Message: "the month/year pair is outside the school year's calendar"},
	chargedomain.ErrSchoolYearRequired:      {Status: http.StatusBadRequest, Code: "school_year_required", Message: "schoolYearId is required when filtering by month"},
	chargedomain.ErrMonthYearPairRequired:   {Status: http.StatusBadRequest, Code: "month_year_pair_required", Message: "mes and anio must be provided together"},
	chargedomain.ErrNoActiveConfig:          {Status: http.StatusBadRequest, Code: "no_active_billing_config", Message: "no active billing configuration exists"},
	paymentdomain.ErrPaymentMethodInactive:  {Status: http.StatusBadRequest, Code: "payment_method_inactive", Message: "the payment method is not active"},
	configdomain.ErrInvalidPrice:            {Status: http.StatusBadRequest, Code: "invalid_price", Message: "prices must be non-negative"},
	configdomain.ErrInvalidMoraRate:         {Status: http.StatusBadRequest, Code: "invalid_mora_rate", Message: "mora rate must be a fraction between 0 and 1"},
	configdomain.ErrInvalidMoraCap:          {Status: http.StatusBadRequest, Code: "invalid_mora_cap", Message: "mora cap must be a fraction between 0 and 1"},
	configdomain.ErrInvalidGrace:            {Status: http.StatusBadRequest, Code: "invalid_grace_days", Message: "grace days must be non-negative"},
	schoolyeardomain.ErrInvalidPeriodo:      {Status: http.StatusBadRequest, Code: "invalid_periodo", Message: "periodo must look like \"2024-2025\""},
	schoolyeardomain.ErrInvalidMonthSpan:    {Status: http.StatusBadRequest, Code: "invalid_month_span", Message: "start and end month must be between 1 and 12"},

	chargedomain.ErrChargeNotFound:         {Status: http.StatusNotFound, Code: "charge_not_found", Message: "charge not found"},
	configdomain.ErrConfigNotFound:         {Status: http.StatusNotFound, Code: "billing_config_not_found", Message: "no billing configuration exists yet"},
	schoolyeardomain.ErrSchoolYearNotFound: {Status: http.StatusNotFound, Code: "school_year_not_found", Message: "school year not found"},
	enrollmentdomain.ErrEnrollmentNotFound: {Status: http.StatusNotFound, Code: "enrollment_not_found", Message: "enrollment not found"},
	paymentdomain.ErrPaymentNotFound:       {Status: http.StatusNotFound, Code: "payment_not_found", Message: "payment not found"},
	paymentdomain.ErrPaymentMethodNotFound: {Status: http.StatusNotFound, Code: "payment_method_not_found", Message: "payment method not found"},
}

func (s *Server) AbortWithError(c *gin.Context, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		c.AbortWithStatusJSON(httpErr.Status, gin.H{"error": httpErr})
		return
	}
	for sentinel, mapped := range errorStatus {
		if errors.Is(err, sentinel) {
			c.AbortWithStatusJSON(mapped.Status, gin.H{"error": mapped})
			return
		}
	}
	s.log.Error("unexpected error", zapError(err), zapPath(c))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": &HTTPError{
		Code:    "internal_error",
		Message: "an unexpected error occurred",
	}})
}
