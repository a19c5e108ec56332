package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/leadrouter/backend/internal/db"
	"github.com/leadrouter/backend/internal/engine"
	"github.com/leadrouter/backend/internal/models"
	"github.com/leadrouter/backend/internal/rules"
)

type Handler struct {
	Store     *db.Store
	Executor  *engine.Executor
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type RuleRequest struct {
	Name        string                 `json:"name" validate:"required"`
	Description string                 `json:"description"`
	Priority    int                    `json:"priority" validate:"min=1,max=10"`
	Active      bool                   `json:"active"`
	RuleType    models.RuleType        `json:"rule_type" validate:"required"`
	Conditions  models.RuleConditions  `json:"conditions"`
	Logic       models.AssignmentLogic `json:"assignment_logic"`
}

func (r RuleRequest) toRule() models.Rule {
	return models.Rule{
		Name:        r.Name,
		Description: r.Description,
		Priority:    r.Priority,
		Active:      r.Active,
		RuleType:    r.RuleType,
		Conditions:  r.Conditions,
		Logic:       r.Logic,
	}
}

// @Summary List routing rules
// @Description Rules in evaluation order (priority desc, creation order on ties)
// @Tags rules
// @Produce json
// @Success 200 {array} models.Rule
// @Router /api/rules [get]
func (h *Handler) RulesList(c *gin.Context) {
	list, err := h.Store.ListRules(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list rules", err.Error())
		return
	}
	if list == nil {
		list = []models.Rule{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) RuleGet(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}
	rule, err := h.Store.RuleByID(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Rule not found", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load rule", err.Error())
		return
	}
	c.JSON(http.StatusOK, rule)
}

// @Summary Create a routing rule
// @Description Validates the definition against the roster and the configuration-error taxonomy before saving
// @Tags rules
// @Accept json
// @Produce json
// @Param rule body RuleRequest true "rule definition"
// @Success 201 {object} models.Rule
// @Failure 400 {object} map[string]any
// @Router /api/rules [post]
func (h *Handler) RuleCreate(c *gin.Context) {
	rule, ok := h.bindRule(c)
	if !ok {
		return
	}
	created, err := h.Store.CreateRule(c.Request.Context(), rule)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create rule", err.Error())
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) RuleUpdate(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}
	rule, ok := h.bindRule(c)
	if !ok {
		return
	}
	rule.ID = id
	updated, err := h.Store.UpdateRule(c.Request.Context(), rule)
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Rule not found", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to update rule", err.Error())
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) RuleDelete(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}
	err := h.Store.DeleteRule(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Rule not found", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to delete rule", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) RuleToggle(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid toggle payload", err.Error())
		return
	}
	rule, err := h.Store.SetRuleActive(c.Request.Context(), id, req.Active)
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Rule not found", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to toggle rule", err.Error())
		return
	}
	c.JSON(http.StatusOK, rule)
}

type ReorderRequest struct {
	RuleIDs []int64 `json:"rule_ids" validate:"required,min=1"`
}

// @Summary Reorder rules
// @Description Takes the full ordered rule id list; position maps to priority clamp(10-index, 1, 10)
// @Tags rules
// @Accept json
// @Produce json
// @Param order body ReorderRequest true "ordered rule ids, top first"
// @Success 200 {array} models.Rule
// @Router /api/rules/reorder [post]
func (h *Handler) RulesReorder(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid reorder payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "rule_ids required", err.Error())
		return
	}
	ctx := c.Request.Context()
	if err := h.Store.ReorderRules(ctx, req.RuleIDs); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Unknown rule id in order", err.Error())
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reorder rules", err.Error())
		return
	}
	list, err := h.Store.ListRules(ctx)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list rules", err.Error())
		return
	}
	c.JSON(http.StatusOK, list)
}

type TestRequest struct {
	LeadID string `json:"lead_id" validate:"required"`
	RuleID *int64 `json:"rule_id"`
}

// @Summary Dry-run rule evaluation for a lead
// @Description Reports which rule would match and which rep would receive the lead; never mutates cursors or workloads
// @Tags routing
// @Accept json
// @Produce json
// @Param test body TestRequest true "lead id plus optional rule scope"
// @Success 200 {object} engine.TestResult
// @Router /api/rules/test [post]
func (h *Handler) RuleTest(c *gin.Context) {
	var req TestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid test payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "lead_id required", err.Error())
		return
	}
	res, err := h.Executor.Test(c.Request.Context(), req.LeadID, req.RuleID, time.Now().UTC())
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Lead or rule not found", err.Error())
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "EVALUATION_ERROR", "Test evaluation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, res)
}

type AssignRequest struct {
	RuleID *int64 `json:"rule_id"`
}

// @Summary Assign a lead
// @Description Re-evaluates rules from current state and commits the assignment atomically
// @Tags routing
// @Accept json
// @Produce json
// @Param assign body AssignRequest false "optional rule scope"
// @Success 200 {object} engine.ApplyResult
// @Router /api/leads/{id}/assign [post]
func (h *Handler) LeadAssign(c *gin.Context) {
	var req AssignRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid assign payload", err.Error())
			return
		}
	}
	res, err := h.Executor.Apply(c.Request.Context(), c.Param("id"), req.RuleID, time.Now().UTC())
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Lead or rule not found", err.Error())
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "EVALUATION_ERROR", "Assignment failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) LeadsList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	list, err := h.Store.ListLeads(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list leads", err.Error())
		return
	}
	if list == nil {
		list = []models.Lead{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) LeadGet(c *gin.Context) {
	lead, err := h.Store.LeadByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Lead not found", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load lead", err.Error())
		return
	}
	c.JSON(http.StatusOK, lead)
}

type LeadRequest struct {
	ID       string `json:"id" validate:"required"`
	Score    int    `json:"score" validate:"min=0,max=100"`
	Source   string `json:"source"`
	Location string `json:"location"`
}

func (h *Handler) LeadCreate(c *gin.Context) {
	var req LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid lead payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Lead validation failed", err.Error())
		return
	}
	lead := models.Lead{
		ID:        req.ID,
		Score:     req.Score,
		Source:    req.Source,
		Location:  req.Location,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateLead(c.Request.Context(), lead); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create lead", err.Error())
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (h *Handler) RepsList(c *gin.Context) {
	list, err := h.Store.ListReps(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list reps", err.Error())
		return
	}
	if list == nil {
		list = []models.Rep{}
	}
	c.JSON(http.StatusOK, list)
}

type RepRequest struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Active *bool  `json:"active"`
}

func (h *Handler) RepCreate(c *gin.Context) {
	var req RepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid rep payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Rep validation failed", err.Error())
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	rep := models.Rep{
		ID:        req.ID,
		Name:      req.Name,
		Active:    active,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateRep(c.Request.Context(), rep); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create rep", err.Error())
		return
	}
	c.JSON(http.StatusCreated, rep)
}

func (h *Handler) AssignmentsList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	list, err := h.Store.ListAssignments(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list assignments", err.Error())
		return
	}
	if list == nil {
		list = []models.Assignment{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) AssignmentResolve(c *gin.Context) {
	err := h.Store.ResolveAssignment(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Active assignment not found", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to resolve assignment", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

func (h *Handler) WorkloadsRecompute(c *gin.Context) {
	if err := h.Store.RecomputeWorkloads(c.Request.Context()); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to recompute workloads", err.Error())
		return
	}
	list, err := h.Store.ListReps(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list reps", err.Error())
		return
	}
	c.JSON(http.StatusOK, list)
}

// bindRule decodes, tag-validates, and semantically validates a rule
// payload, verifying rep references against the live roster.
func (h *Handler) bindRule(c *gin.Context) (models.Rule, bool) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid rule payload", err.Error())
		return models.Rule{}, false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Rule validation failed", err.Error())
		return models.Rule{}, false
	}

	roster, err := h.Store.Roster(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load rep roster", err.Error())
		return models.Rule{}, false
	}

	rule := req.toRule()
	if err := rules.Validate(rule, roster); err != nil {
		var ve *rules.ValidationError
		if errors.As(err, &ve) {
			writeError(c, http.StatusBadRequest, "INVALID_RULE", "Rule configuration rejected", ve.Errors)
			return models.Rule{}, false
		}
		writeError(c, http.StatusBadRequest, "INVALID_RULE", "Rule configuration rejected", err.Error())
		return models.Rule{}, false
	}
	return rule, true
}

func ruleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid rule id", nil)
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
