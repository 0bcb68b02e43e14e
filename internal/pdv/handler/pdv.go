// Package handler exposes the terminal draft lifecycle over HTTP. Each
// terminal opens a session, drives its draft through item, payment and
// adjustment commands, and finalizes against the ERP service.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"sirius-system/internal/draft"
	"sirius-system/internal/erpclient"
	"sirius-system/internal/gateway/middleware"
)

type PDVHandler struct {
	registry   *SessionRegistry
	erpBaseURL string
}

func NewPDVHandler(erpBaseURL string) *PDVHandler {
	return &PDVHandler{
		registry:   NewSessionRegistry(),
		erpBaseURL: erpBaseURL,
	}
}

// RegisterRoutes mounts the session API on the given group.
func (h *PDVHandler) RegisterRoutes(group *gin.RouterGroup) {
	sessions := group.Group("/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetDraft)
		sessions.DELETE("/:id", h.CloseSession)

		sessions.POST("/:id/items", h.AddItem)
		sessions.PUT("/:id/items/:index/quantity", h.SetItemQuantity)
		sessions.DELETE("/:id/items/:index", h.RemoveItem)

		sessions.POST("/:id/payments", h.AddPayment)
		sessions.DELETE("/:id/payments/:index", h.RemovePayment)

		sessions.PUT("/:id/adjustments", h.SetAdjustments)
		sessions.PUT("/:id/client", h.SetClient)
		sessions.PUT("/:id/notes", h.SetNotes)

		sessions.POST("/:id/finalize", h.Finalize)
		sessions.POST("/:id/reset", h.Reset)

		sessions.GET("/:id/products/search", h.SearchProducts)
		sessions.GET("/:id/clients/search", h.SearchClients)
	}
}

// --- Response envelope ---

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func successResponse(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data}
}

func errorResponse(message string) APIResponse {
	return APIResponse{Success: false, Message: message}
}

// --- Wire DTOs ---

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Draft     DraftView `json:"draft"`
}

// DraftView is the rendering contract: the full draft plus the derived
// values the terminal shows next to the payment panel.
type DraftView struct {
	State          draft.Draft           `json:"state"`
	AmountDue      decimal.Decimal       `json:"amount_due"`
	CanFinalize    bool                  `json:"can_finalize"`
	PaymentMethods []draft.PaymentMethod `json:"payment_methods"`
}

type AddItemRequest struct {
	Product draft.ProductSnapshot `json:"product" binding:"required"`
}

type SetQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

type AddPaymentRequest struct {
	MethodID int64           `json:"method_id" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Tendered decimal.Decimal `json:"tendered"`
}

type AdjustmentsRequest struct {
	Discount  decimal.Decimal `json:"discount"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

type SetClientRequest struct {
	Client draft.Client `json:"client" binding:"required"`
}

type SetNotesRequest struct {
	Notes string `json:"notes"`
}

// --- Session lifecycle ---

func (h *PDVHandler) CreateSession(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	companyID := middleware.CompanyID(c)

	erp := erpclient.New(h.erpBaseURL, token, companyID)
	controller := draft.NewController(erp)
	if err := controller.Initialize(c.Request.Context()); err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}

	s := h.registry.Add(controller, erp)
	c.JSON(http.StatusCreated, successResponse(SessionResponse{
		SessionID: s.ID,
		Draft:     viewOf(controller),
	}))
}

func (h *PDVHandler) GetDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, successResponse(viewOf(s.Controller)))
}

func (h *PDVHandler) CloseSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.registry.Remove(s.ID)
	c.JSON(http.StatusOK, successResponse(gin.H{"closed": true}))
}

// --- Draft commands ---

func (h *PDVHandler) AddItem(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	s.Controller.AddLineItem(req.Product)
	c.JSON(http.StatusOK, successResponse(viewOf(s.Controller)))
}

func (h *PDVHandler) SetItemQuantity(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := h.index(c)
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if err := s.Controller.SetLineItemQuantity(index, req.Quantity); err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, successResponse(viewOf(s.Controller)))
}

func (h *PDVHandler) RemoveItem(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := h.index(c)
	if !ok {
		return
	}

	if err := s.Controller.RemoveLineItem(index); err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, successResponse(viewOf(s.Controller)))
}

func (h *PDVHandler) AddPayment(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if err := s.Controller.AddPayment(req.MethodID, req.Amount, req.Tendered); err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, successResponse(viewOf(s.Controller)))
}

func (h *PDVHandler) RemovePayment(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := h.index(c)
	if !ok {
		return
	}

	if err := s.Controller.RemovePayment(index); err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, successResponse(viewOf(s.Controller)))
}

func (h *PDVHandler) SetAdjustments(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req AdjustmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if err := s.Controller.SetAdjustments(req.Discount, req.Surcharge); err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, successResponse(viewOf(s.Controller)))
}

func (h *PDVHandler) SetClient(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req SetClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	s.Controller.SetClient(req.Client)
	c.JSON(http.StatusOK, successResponse(viewOf(s.Controller)))
}

func (h *PDVHandler) SetNotes(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req SetNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	s.Controller.SetNotes(req.Notes)
	c.JSON(http.StatusOK, successResponse(viewOf(s.Controller)))
}

func (h *PDVHandler) Finalize(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	confirmation, err := s.Controller.Finalize(c.Request.Context())
	if err != nil && confirmation == nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}

	resp := APIResponse{
		Success: true,
		Data: gin.H{
			"confirmation": confirmation,
			"draft":        viewOf(s.Controller),
		},
	}
	if err != nil {
		// The order persisted; only the next draft failed to set up.
		resp.Message = "order saved, but preparing the next draft failed: " + err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PDVHandler) Reset(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.Controller.Reset(c.Request.Context()); err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, successResponse(viewOf(s.Controller)))
}

// --- Catalog passthrough ---

func (h *PDVHandler) SearchProducts(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	results, err := s.ERP.SearchProducts(c.Request.Context(), c.Query("term"))
	if err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, successResponse(results))
}

func (h *PDVHandler) SearchClients(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	results, err := s.ERP.SearchClients(c.Request.Context(), c.Query("term"))
	if err != nil {
		c.JSON(statusForError(err), errorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, successResponse(results))
}

// --- Helpers ---

func (h *PDVHandler) session(c *gin.Context) (*session, bool) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Session not found"))
		return nil, false
	}
	return s, true
}

func (h *PDVHandler) index(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid index"))
		return 0, false
	}
	return index, true
}

func viewOf(controller *draft.Controller) DraftView {
	state := controller.Draft()
	return DraftView{
		State:          state,
		AmountDue:      state.AmountDue(),
		CanFinalize:    state.CanFinalize(),
		PaymentMethods: controller.PaymentMethods(),
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, draft.ErrFinalizeInFlight):
		return http.StatusConflict
	case errors.Is(err, draft.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, erpclient.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, draft.ErrItemNotFound),
		errors.Is(err, draft.ErrPaymentNotFound):
		return http.StatusNotFound
	}

	var validation *draft.ValidationError
	if errors.As(err, &validation) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}
