package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	appcart "github.com/Zhima-Mochi/restaurant-ordering/internal/application/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/catalog"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/checkout"
	appinventory "github.com/Zhima-Mochi/restaurant-ordering/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/restaurant-ordering/internal/application/order"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/infrastructure/audit"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/observability"
	"github.com/gin-gonic/gin"
)

const (
	componentHTTPHandler = "http_server"
	defaultKeepAlive     = 25 * time.Second
	defaultAuditLimit    = 50
)

// Stream hands out listeners for the admin order feed.
type Stream interface {
	Subscribe() (<-chan []byte, func())
}

// AuditTrail reads back what was recorded for an order.
type AuditTrail interface {
	History(ctx context.Context, orderID string, limit int64) ([]*audit.Entry, error)
}

type Services struct {
	Catalog   *catalog.Service
	Inventory *appinventory.Service
	Cart      *appcart.Service
	Orders    *apporder.Service
	Checkout  *checkout.ConfirmOrderUseCase
}

type Options struct {
	Logger        observability.Logger
	Observability observability.Observability
	Verifier      *TokenVerifier
	Stream        Stream
	Audit         AuditTrail
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Ready backs GET /health; nil means always healthy.
	Ready     func(ctx context.Context) error
	KeepAlive time.Duration
}

type Handler struct {
	svc       Services
	log       observability.Logger
	metrics   observability.Metrics
	verifier  *TokenVerifier
	stream    Stream
	audit     AuditTrail
	promH     http.Handler
	ready     func(ctx context.Context) error
	keepAlive time.Duration
}

func NewHandler(svc Services, opts Options) *Handler {
	tel := opts.Observability
	if tel == nil {
		tel = observability.Nop()
	}
	logger := opts.Logger
	if logger == nil {
		logger = tel.Logger()
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}
	return &Handler{
		svc:       svc,
		log:       logger.With(observability.F("component", componentHTTPHandler)),
		metrics:   tel.Metrics(),
		verifier:  opts.Verifier,
		stream:    opts.Stream,
		audit:     opts.Audit,
		promH:     opts.Metrics,
		ready:     opts.Ready,
		keepAlive: opts.KeepAlive,
	}
}

// Router wires each route behind Trace → Request Logger → Metrics → Access Log → Recovery.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		withTrace(),
		withRequestLogger(h.log),
		withHTTPMetrics(h.metrics),
		withAccessLog(h.log),
		withRecovery(h.log),
	)

	r.GET("/health", h.handleHealth)
	if h.promH != nil {
		r.GET("/metrics", gin.WrapH(h.promH))
	}

	r.GET("/dishes", h.handleListDishes(catalog.ListingAll))
	r.GET("/dishes/popular", h.handleListDishes(catalog.ListingPopular))
	r.GET("/dishes/new", h.handleListDishes(catalog.ListingNew))
	r.GET("/dishes/:id", h.handleGetDish)

	authed := r.Group("/", RequireAuth(h.verifier))
	authed.GET("/cart", h.handleListCart)
	authed.POST("/cart/items", h.handleAddCartItem)
	authed.PATCH("/cart/items/:id", h.handleUpdateCartItem)
	authed.DELETE("/cart/items/:id", h.handleRemoveCartItem)
	authed.POST("/orders/confirm", h.handleConfirmOrder)
	authed.GET("/orders", h.handleListOrders)
	authed.GET("/orders/:id", h.handleGetOrder)

	admin := authed.Group("/admin", RequireRole(RoleAdmin))
	admin.GET("/dishes", h.handleAdminListDishes)
	admin.PATCH("/dishes/:id/availability", h.handleSetAvailability)
	admin.PUT("/orders/:id/status", h.handleUpdateOrderStatus)
	admin.GET("/orders/stream", h.handleOrderStream)
	admin.GET("/orders/:id/audit", h.handleOrderAudit)
	admin.GET("/ingredients", h.handleListIngredients)
	admin.GET("/ingredients/low-stock", h.handleLowStock)
	admin.POST("/ingredients/:id/stock", h.handleAdjustStock)
	admin.DELETE("/ingredients/:id", h.handleDeleteIngredient)

	return r
}

func (h *Handler) handleHealth(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleListDishes(listing catalog.Listing) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.listDishes(c, catalog.ListDishesInput{Listing: listing})
	}
}

func (h *Handler) handleAdminListDishes(c *gin.Context) {
	listing := catalog.Listing(c.DefaultQuery("listing", string(catalog.ListingAll)))
	h.listDishes(c, catalog.ListDishesInput{Listing: listing, IncludeUnavailable: true})
}

func (h *Handler) listDishes(c *gin.Context, in catalog.ListDishesInput) {
	views, err := h.svc.Catalog.ListDishes(c.Request.Context(), in)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]dishResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toDishResponse(v))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) handleGetDish(c *gin.Context) {
	v, err := h.svc.Catalog.GetDish(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDishResponse(v))
}

type availabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

func (h *Handler) handleSetAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	v, err := h.svc.Catalog.SetAvailability(c.Request.Context(), c.Param("id"), *req.Available)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDishResponse(v))
}

func (h *Handler) handleListCart(c *gin.Context) {
	view, err := h.svc.Cart.ListCart(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(view))
}

type addCartItemRequest struct {
	DishID   string   `json:"dish_id" binding:"required"`
	Quantity int      `json:"quantity"`
	Removed  []string `json:"removed"`
	Added    []string `json:"added"`
}

func (h *Handler) handleAddCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	item, err := h.svc.Cart.AddItem(c.Request.Context(), appcart.AddItemInput{
		UserID:   c.GetString(ctxUserID),
		DishID:   req.DishID,
		Quantity: req.Quantity,
		Removed:  req.Removed,
		Added:    req.Added,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCartItemResponse(item))
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *Handler) handleUpdateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	item, err := h.svc.Cart.UpdateQuantity(c.Request.Context(), c.GetString(ctxUserID), c.Param("id"), req.Quantity)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartItemResponse(item))
}

func (h *Handler) handleRemoveCartItem(c *gin.Context) {
	if err := h.svc.Cart.RemoveItem(c.Request.Context(), c.GetString(ctxUserID), c.Param("id")); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type confirmOrderRequest struct {
	PromoCode string `json:"promo_code"`
}

type confirmOrderResponse struct {
	Message  string        `json:"message"`
	Order    orderResponse `json:"order"`
	Discount string        `json:"discount,omitempty"`
}

func (h *Handler) handleConfirmOrder(c *gin.Context) {
	var req confirmOrderRequest
	// the body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	res, err := h.svc.Checkout.Execute(c.Request.Context(), checkout.ConfirmOrderInput{
		UserID:    c.GetString(ctxUserID),
		PromoCode: req.PromoCode,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := confirmOrderResponse{Message: res.Message, Order: toOrderResponse(res.Order)}
	if res.Promotion.Applied {
		out.Discount = res.Promotion.Discount.StringFixed(2)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) handleListOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListMine(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) handleGetOrder(c *gin.Context) {
	viewer := apporder.Viewer{UserID: c.GetString(ctxUserID), Admin: isAdmin(c)}
	o, err := h.svc.Orders.Get(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) handleUpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	o, err := h.svc.Orders.UpdateStatus(c.Request.Context(), apporder.UpdateStatusInput{
		OrderID: c.Param("id"),
		Status:  req.Status,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

// handleOrderStream pushes every order notification to the connected admin as server-sent events.
func (h *Handler) handleOrderStream(c *gin.Context) {
	if h.stream == nil {
		writeMessage(c, http.StatusServiceUnavailable, "order stream is not enabled")
		return
	}
	ch, cancel := h.stream.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(eventName(msg), string(msg))
			c.Writer.Flush()
		case <-ticker.C:
			_, _ = io.WriteString(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		}
	}
}

func eventName(msg []byte) string {
	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(msg, &head); err != nil || head.Event == "" {
		return "message"
	}
	return head.Event
}

func (h *Handler) handleOrderAudit(c *gin.Context) {
	if h.audit == nil {
		writeMessage(c, http.StatusServiceUnavailable, "audit trail is not enabled")
		return
	}
	limit := int64(defaultAuditLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeMessage(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := h.audit.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) handleListIngredients(c *gin.Context) {
	list, err := h.svc.Inventory.List(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toIngredientResponses(list))
}

func (h *Handler) handleLowStock(c *gin.Context) {
	list, err := h.svc.Inventory.LowStock(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toIngredientResponses(list))
}

type adjustStockRequest struct {
	Delta float64 `json:"delta" binding:"required"`
}

func (h *Handler) handleAdjustStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	ing, err := h.svc.Inventory.AdjustStock(c.Request.Context(), appinventory.AdjustStockInput{
		IngredientID: c.Param("id"),
		Delta:        req.Delta,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toIngredientResponse(ing))
}

func (h *Handler) handleDeleteIngredient(c *gin.Context) {
	if err := h.svc.Inventory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
