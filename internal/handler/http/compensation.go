package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/auth"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
)

type CompensationHandler interface {
	GetRules(w http.ResponseWriter, r *http.Request)
	ComputeBreakdown(w http.ResponseWriter, r *http.Request)
	ValidateManualEdits(w http.ResponseWriter, r *http.Request)
	ProRate(w http.ResponseWriter, r *http.Request)
}

type compensationHandlerImpl struct {
	compensationService compensation.CompensationService
}

func NewCompensationHandler(compensationService compensation.CompensationService) CompensationHandler {
	return &compensationHandlerImpl{compensationService: compensationService}
}

// caller returns the claims AuthRequired stored on the request.
func caller(r *http.Request) auth.Claims {
	claims, _ := auth.ClaimsFromContext(r.Context())
	return claims
}

func (h *compensationHandlerImpl) GetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.compensationService.RulesForTenant(r.Context(), caller(r).TenantID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, rules)
}

func (h *compensationHandlerImpl) ComputeBreakdown(w http.ResponseWriter, r *http.Request) {
	var req compensation.ComputeBreakdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.TenantID = caller(r).TenantID

	result, err := h.compensationService.ComputeBreakdown(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *compensationHandlerImpl) ValidateManualEdits(w http.ResponseWriter, r *http.Request) {
	var req compensation.ManualEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.TenantID = caller(r).TenantID

	result, err := h.compensationService.ValidateManualEdits(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *compensationHandlerImpl) ProRate(w http.ResponseWriter, r *http.Request) {
	var req compensation.ProRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.TenantID = caller(r).TenantID

	result, err := h.compensationService.ProRate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
