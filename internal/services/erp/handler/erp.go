package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sirius-system/internal/database/models"
	"sirius-system/internal/gateway/middleware"
)

const (
	PAYMENT_METHOD_CACHE_KEY = "erp:payment-methods"
	DEFAULT_CLIENT_CACHE_KEY = "erp:default-client"
	CACHE_TTL_MEDIUM         = 30 * time.Minute

	searchResultLimit = 20
)

// paymentEpsilon mirrors the terminal-side reconciliation tolerance.
var paymentEpsilon = decimal.New(1, -2)

type ERPHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewERPHandler(db *gorm.DB, redisClient *redis.Client) *ERPHandler {
	return &ERPHandler{
		db:    db,
		redis: redisClient,
	}
}

// --- Response envelope ---

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data}
}

func errorResponse(message string) APIResponse {
	return APIResponse{Success: false, Message: message}
}

func successWithMetaResponse(data interface{}, meta interface{}) APIResponse {
	return APIResponse{Success: true, Data: data, Meta: meta}
}

// --- Wire DTOs ---

type ProductResult struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	EAN         string          `json:"ean"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Stock       decimal.Decimal `json:"stock"`
}

type ClientResult struct {
	ID           int64  `json:"id"`
	RazaoSocial  string `json:"razao_social"`
	NomeFantasia string `json:"nome_fantasia"`
	Documento    string `json:"documento"`
}

type PaymentMethodResult struct {
	ID           int64  `json:"id"`
	Description  string `json:"description"`
	AllowsChange bool   `json:"allows_change"`
}

type FinalizeItemRequest struct {
	ProductID   int64           `json:"product_id" binding:"required"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type FinalizePaymentRequest struct {
	MethodID    int64           `json:"method_id" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Change      decimal.Decimal `json:"change"`
}

type FinalizeOrderRequest struct {
	OrderNumber int64                    `json:"order_number" binding:"required"`
	Client      *ClientResult            `json:"client" binding:"required"`
	Items       []FinalizeItemRequest    `json:"items" binding:"required,min=1"`
	Payments    []FinalizePaymentRequest `json:"payments" binding:"required,min=1"`
	GrossTotal  decimal.Decimal          `json:"gross_total"`
	Discount    decimal.Decimal          `json:"discount"`
	Surcharge   decimal.Decimal          `json:"surcharge"`
	NetTotal    decimal.Decimal          `json:"net_total"`
	Notes       string                   `json:"notes"`
}

type OrderConfirmation struct {
	OrderID   int64     `json:"id"`
	Number    int64     `json:"number"`
	Total     string    `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

type ListOrdersQuery struct {
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
	ClientID  *int64 `form:"client_id,omitempty"`
	StartDate string `form:"start_date,omitempty"`
	EndDate   string `form:"end_date,omitempty"`
}

// --- PDV lookups ---

func (h *ERPHandler) NextOrderNumber(c *gin.Context) {
	companyID := middleware.CompanyID(c)

	var max int64
	err := h.db.Model(&models.Order{}).
		Where("company_id = ?", companyID).
		Select("COALESCE(MAX(number), 0)").
		Scan(&max).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"number": max + 1}))
}

func (h *ERPHandler) DefaultClient(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	cacheKey := fmt.Sprintf("%s:%d", DEFAULT_CLIENT_CACHE_KEY, companyID)

	if cached, err := h.redis.Get(c.Request.Context(), cacheKey).Result(); err == nil {
		var result ClientResult
		if json.Unmarshal([]byte(cached), &result) == nil {
			c.JSON(http.StatusOK, successResponse(result))
			return
		}
	}

	var client models.Client
	err := h.db.Where("company_id = ? AND consumidor_final = ? AND is_active = ?", companyID, true, true).
		First(&client).Error
	if err == gorm.ErrRecordNotFound {
		err = h.db.Where("company_id = ? AND is_active = ?", companyID, true).
			Order("id").
			First(&client).Error
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, errorResponse("No default client configured"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("database error"))
		return
	}

	result := clientToResult(client)
	if payload, err := json.Marshal(result); err == nil {
		h.redis.Set(c.Request.Context(), cacheKey, payload, CACHE_TTL_MEDIUM)
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *ERPHandler) SearchProducts(c *gin.Context) {
	companyID := middleware.CompanyID(c)

	term := c.Query("term")
	if len([]rune(term)) < 2 {
		c.JSON(http.StatusBadRequest, errorResponse("Search term must have at least 2 characters"))
		return
	}

	like := "%" + term + "%"
	var products []models.Product
	err := h.db.Where("company_id = ? AND is_active = ?", companyID, true).
		Where("code ILIKE ? OR ean ILIKE ? OR description ILIKE ?", like, like, like).
		Order("description").
		Limit(searchResultLimit).
		Find(&products).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("database error"))
		return
	}

	results := make([]ProductResult, len(products))
	for i, p := range products {
		results[i] = productToResult(p)
	}
	c.JSON(http.StatusOK, successResponse(results))
}

func (h *ERPHandler) SearchClients(c *gin.Context) {
	companyID := middleware.CompanyID(c)

	term := c.Query("term")
	if len([]rune(term)) < 2 {
		c.JSON(http.StatusBadRequest, errorResponse("Search term must have at least 2 characters"))
		return
	}

	like := "%" + term + "%"
	var clients []models.Client
	err := h.db.Where("company_id = ? AND is_active = ?", companyID, true).
		Where("razao_social ILIKE ? OR nome_fantasia ILIKE ? OR documento ILIKE ?", like, like, like).
		Order("razao_social").
		Limit(searchResultLimit).
		Find(&clients).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("database error"))
		return
	}

	results := make([]ClientResult, len(clients))
	for i, cl := range clients {
		results[i] = clientToResult(cl)
	}
	c.JSON(http.StatusOK, successResponse(results))
}

func (h *ERPHandler) ListPaymentMethods(c *gin.Context) {
	companyID := middleware.CompanyID(c)
	cacheKey := fmt.Sprintf("%s:%d", PAYMENT_METHOD_CACHE_KEY, companyID)

	if cached, err := h.redis.Get(c.Request.Context(), cacheKey).Result(); err == nil {
		var results []PaymentMethodResult
		if json.Unmarshal([]byte(cached), &results) == nil {
			c.JSON(http.StatusOK, successResponse(results))
			return
		}
	}

	var methods []models.PaymentMethod
	err := h.db.Where("company_id = ? AND is_active = ?", companyID, true).
		Order("id").
		Find(&methods).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("database error"))
		return
	}

	results := make([]PaymentMethodResult, len(methods))
	for i, m := range methods {
		results[i] = PaymentMethodResult{
			ID:           m.ID,
			Description:  m.Description,
			AllowsChange: m.AllowsChange,
		}
	}

	if payload, err := json.Marshal(results); err == nil {
		h.redis.Set(c.Request.Context(), cacheKey, payload, CACHE_TTL_MEDIUM)
	}

	c.JSON(http.StatusOK, successResponse(results))
}

// --- Order finalization ---

// FinalizeOrder persists a complete draft as one transaction: stock is
// re-checked under row locks and decremented, then the order with its items
// and payments is written. The client-side stock snapshot is advisory only;
// this is the authority, and a lost race comes back as the same
// insufficient-stock message the terminal produces locally.
func (h *ERPHandler) FinalizeOrder(c *gin.Context) {
	companyID := middleware.CompanyID(c)

	var req FinalizeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	if req.Client.ID == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Order has no client"))
		return
	}

	// Authoritative reconciliation, independent of what the terminal computed.
	gross := decimal.Zero
	for _, item := range req.Items {
		gross = gross.Add(item.Quantity.Mul(item.UnitPrice))
	}
	net := gross.Sub(req.Discount).Add(req.Surcharge)

	paid := decimal.Zero
	for _, p := range req.Payments {
		if p.Amount.LessThanOrEqual(decimal.Zero) {
			c.JSON(http.StatusBadRequest, errorResponse("Payment amount must be greater than zero"))
			return
		}
		paid = paid.Add(p.Amount)
	}
	if paid.Sub(net).Abs().GreaterThan(paymentEpsilon) {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf(
			"Payment total %s does not match order total %s", paid.StringFixed(2), net.StringFixed(2))))
		return
	}

	var confirmation OrderConfirmation

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Order
		err := tx.Where("company_id = ? AND number = ?", companyID, req.OrderNumber).
			First(&existing).Error
		if err == nil {
			return fmt.Errorf("order number %d already exists", req.OrderNumber)
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		now := time.Now()
		order := models.Order{
			CompanyId:  companyID,
			Number:     req.OrderNumber,
			ClientId:   req.Client.ID,
			GrossTotal: gross.StringFixed(2),
			Discount:   req.Discount.StringFixed(2),
			Surcharge:  req.Surcharge.StringFixed(2),
			NetTotal:   net.StringFixed(2),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if req.Notes != "" {
			order.Notes = &req.Notes
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, itemReq := range req.Items {
			if itemReq.Quantity.LessThanOrEqual(decimal.Zero) {
				return fmt.Errorf("invalid quantity for product %d", itemReq.ProductID)
			}

			var product models.Product
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND company_id = ? AND is_active = ?", itemReq.ProductID, companyID, true).
				First(&product).Error
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return fmt.Errorf("product %d not found or inactive", itemReq.ProductID)
				}
				return err
			}

			stock, err := decimal.NewFromString(product.Stock)
			if err != nil {
				return fmt.Errorf("invalid stock value for product %d", product.ID)
			}
			if itemReq.Quantity.GreaterThan(stock) {
				return fmt.Errorf("insufficient stock for requested quantity: %s: available %s, requested %s",
					product.Description, stock.StringFixed(3), itemReq.Quantity.StringFixed(3))
			}

			product.Stock = stock.Sub(itemReq.Quantity).StringFixed(3)
			product.UpdatedAt = now
			if err := tx.Save(&product).Error; err != nil {
				return err
			}

			orderItem := models.OrderItem{
				OrderId:     order.ID,
				ProductId:   product.ID,
				Description: product.Description,
				Unit:        product.Unit,
				Quantity:    itemReq.Quantity.StringFixed(3),
				UnitPrice:   itemReq.UnitPrice.StringFixed(2),
				LineTotal:   itemReq.Quantity.Mul(itemReq.UnitPrice).StringFixed(2),
				CreatedAt:   now,
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
		}

		for _, payReq := range req.Payments {
			var method models.PaymentMethod
			err := tx.Where("id = ? AND company_id = ? AND is_active = ?", payReq.MethodID, companyID, true).
				First(&method).Error
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return fmt.Errorf("payment method %d not found", payReq.MethodID)
				}
				return err
			}

			payment := models.OrderPayment{
				OrderId:         order.ID,
				PaymentMethodId: method.ID,
				Description:     method.Description,
				Amount:          payReq.Amount.StringFixed(2),
				Change:          payReq.Change.StringFixed(2),
				CreatedAt:       now,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}

		confirmation = OrderConfirmation{
			OrderID:   order.ID,
			Number:    order.Number,
			Total:     order.NetTotal,
			CreatedAt: order.CreatedAt,
		}
		return nil
	})

	if err != nil {
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, successResponse(confirmation))
}

// --- Order queries ---

func (h *ERPHandler) ListOrders(c *gin.Context) {
	companyID := middleware.CompanyID(c)

	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	q := h.db.Model(&models.Order{}).Where("company_id = ?", companyID)
	if query.ClientID != nil {
		q = q.Where("client_id = ?", *query.ClientID)
	}
	if query.StartDate != "" {
		if start, err := time.Parse("2006-01-02", query.StartDate); err == nil {
			q = q.Where("created_at >= ?", start)
		}
	}
	if query.EndDate != "" {
		if end, err := time.Parse("2006-01-02", query.EndDate); err == nil {
			q = q.Where("created_at < ?", end.AddDate(0, 0, 1))
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("database error"))
		return
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	var orders []models.Order
	err := q.Preload("Client").
		Order("number DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("database error"))
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse(orders, gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
	}))
}

func (h *ERPHandler) GetOrder(c *gin.Context) {
	companyID := middleware.CompanyID(c)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order ID"))
		return
	}

	var order models.Order
	err = h.db.Where("id = ? AND company_id = ?", orderID, companyID).
		Preload("Client").
		Preload("Items.Product").
		Preload("Payments.PaymentMethod").
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, errorResponse("Order not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("database error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(order))
}

// --- Model to DTO ---

func productToResult(p models.Product) ProductResult {
	price, _ := decimal.NewFromString(p.Price)
	stock, _ := decimal.NewFromString(p.Stock)
	return ProductResult{
		ID:          p.ID,
		Code:        p.Code,
		EAN:         p.EAN,
		Description: p.Description,
		Unit:        p.Unit,
		Price:       price,
		Stock:       stock,
	}
}

func clientToResult(c models.Client) ClientResult {
	return ClientResult{
		ID:           c.ID,
		RazaoSocial:  c.RazaoSocial,
		NomeFantasia: c.NomeFantasia,
		Documento:    c.Documento,
	}
}
