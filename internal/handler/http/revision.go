package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/revision"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type RevisionHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Submit(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	GetByID(w http.ResponseWriter, r *http.Request)
	ListByEmployee(w http.ResponseWriter, r *http.Request)
}

type revisionHandlerImpl struct {
	revisionService     revision.RevisionService
	compensationService compensation.CompensationService
}

func NewRevisionHandler(revisionService revision.RevisionService, compensationService compensation.CompensationService) RevisionHandler {
	return &revisionHandlerImpl{
		revisionService:     revisionService,
		compensationService: compensationService,
	}
}

// createRevisionRequest carries the target CTC; the proposed structure is solved server side.
type createRevisionRequest struct {
	revision.CreateDraftRequest
	AnnualCTC decimal.Decimal                `json:"annual_ctc"`
	Overrides *compensation.CompensationRules `json:"overrides,omitempty"`
}

type updateRevisionRequest struct {
	AnnualCTC decimal.Decimal                `json:"annual_ctc"`
	Overrides *compensation.CompensationRules `json:"overrides,omitempty"`
	Reason    *string                         `json:"reason,omitempty"`
}

type rejectRevisionRequest struct {
	Reason string `json:"reason"`
}

func (h *revisionHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req createRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	claims := caller(r)

	breakdown, err := h.compensationService.ComputeBreakdown(r.Context(), compensation.ComputeBreakdownRequest{
		TenantID:  claims.TenantID,
		AnnualCTC: req.AnnualCTC,
		Overrides: req.Overrides,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	draft := req.CreateDraftRequest
	draft.TenantID = claims.TenantID
	draft.ActorID = claims.ActorID
	draft.NewBreakdown = breakdown

	result, err := h.revisionService.CreateDraft(r.Context(), draft)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Salary revision drafted", result)
}

func (h *revisionHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	claims := caller(r)

	breakdown, err := h.compensationService.ComputeBreakdown(r.Context(), compensation.ComputeBreakdownRequest{
		TenantID:  claims.TenantID,
		AnnualCTC: req.AnnualCTC,
		Overrides: req.Overrides,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.revisionService.UpdateDraft(r.Context(), revision.UpdateDraftRequest{
		TenantID:     claims.TenantID,
		ActorID:      claims.ActorID,
		RevisionID:   chi.URLParam(r, "revisionID"),
		NewBreakdown: breakdown,
		Reason:       req.Reason,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *revisionHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	claims := caller(r)

	result, err := h.revisionService.SubmitForApproval(r.Context(), claims.TenantID, chi.URLParam(r, "revisionID"), claims.ActorID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary revision submitted for approval", result)
}

func (h *revisionHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	claims := caller(r)

	result, err := h.revisionService.Approve(r.Context(), claims.TenantID, chi.URLParam(r, "revisionID"), claims.ActorID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary revision approved", result)
}

func (h *revisionHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	claims := caller(r)

	result, err := h.revisionService.Reject(r.Context(), revision.RejectRequest{
		TenantID:   claims.TenantID,
		RevisionID: chi.URLParam(r, "revisionID"),
		ApproverID: claims.ActorID,
		Reason:     req.Reason,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary revision rejected", result)
}

func (h *revisionHandlerImpl) GetByID(w http.ResponseWriter, r *http.Request) {
	result, err := h.revisionService.GetRevision(r.Context(), caller(r).TenantID, chi.URLParam(r, "revisionID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *revisionHandlerImpl) ListByEmployee(w http.ResponseWriter, r *http.Request) {
	result, err := h.revisionService.ListByEmployee(r.Context(), caller(r).TenantID, chi.URLParam(r, "employeeID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
