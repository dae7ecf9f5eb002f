package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront-cart/internal/domain"
	cartsvc "storefront-cart/internal/service/cart"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CartService is the mutation engine as the gateway sees it.
type CartService interface {
	GetCart(ctx context.Context, cartID string) (*cartsvc.View, error)
	AddItem(ctx context.Context, cartID, productID string, delta int) (*cartsvc.Result, error)
	SetQuantity(ctx context.Context, cartID, productID string, quantity int) (*cartsvc.Result, error)
	RemoveItem(ctx context.Context, cartID, productID string) (*cartsvc.Result, error)
}

const (
	codeInvalidRequest    = "INVALID_REQUEST"
	codeInvalidQuantity   = "INVALID_QUANTITY"
	codeProductNotFound   = "PRODUCT_NOT_FOUND"
	codeLineNotFound      = "LINE_NOT_FOUND"
	codeInsufficientStock = "INSUFFICIENT_STOCK"
	codeUnauthorized      = "UNAUTHORIZED"
	codeInternal          = "INTERNAL_ERROR"
)

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type cartItem struct {
	ProductID     string    `json:"productId"`
	Quantity      int       `json:"quantity"`
	UnitPrice     float64   `json:"unitPrice"`
	LineTotal     float64   `json:"lineTotal"`
	Name          string    `json:"name"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	StockQuantity int       `json:"stockQuantity"`
	TrackQuantity bool      `json:"trackQuantity"`
	Available     bool      `json:"available"`
	AddedAt       time.Time `json:"addedAt"`
}

type cartBody struct {
	Items     []cartItem `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	ItemCount int        `json:"itemCount"`
}

type cartResponse struct {
	Success bool     `json:"success"`
	Cart    cartBody `json:"cart"`
}

type mutationResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Item    *cartItem `json:"item,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type cartHandler struct {
	svc    CartService
	logger *zap.Logger
}

func (h *cartHandler) register(r gin.IRoutes) {
	r.GET("/cart", h.get)
	r.POST("/cart", h.add)
	r.PUT("/cart/:productId", h.setQuantity)
	r.DELETE("/cart/:productId", h.remove)
}

func (h *cartHandler) get(c *gin.Context) {
	view, err := h.svc.GetCart(c.Request.Context(), cartIdentity(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	items := make([]cartItem, 0, len(view.Lines))
	for _, l := range view.Lines {
		items = append(items, toCartItem(l))
	}
	c.JSON(http.StatusOK, cartResponse{
		Success: true,
		Cart: cartBody{
			Items:     items,
			Subtotal:  view.Totals.Subtotal.InexactFloat64(),
			ItemCount: view.Totals.ItemCount,
		},
	})
}

func (h *cartHandler) add(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "productId and quantity are required")
		return
	}
	res, err := h.svc.AddItem(c.Request.Context(), cartIdentity(c), req.ProductID, *req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header(headerCartItemCount, strconv.Itoa(res.Totals.ItemCount))
	c.JSON(http.StatusCreated, mutationResponse{
		Success: true,
		Message: "item added to cart",
		Item:    itemOrNil(res.Line),
	})
}

func (h *cartHandler) setQuantity(c *gin.Context) {
	productID := strings.TrimSpace(c.Param("productId"))
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity is required")
		return
	}
	res, err := h.svc.SetQuantity(c.Request.Context(), cartIdentity(c), productID, *req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	msg := "cart item updated"
	if res.Line == nil {
		msg = "item removed from cart"
	}
	c.Header(headerCartItemCount, strconv.Itoa(res.Totals.ItemCount))
	c.JSON(http.StatusOK, mutationResponse{
		Success: true,
		Message: msg,
		Item:    itemOrNil(res.Line),
	})
}

func (h *cartHandler) remove(c *gin.Context) {
	productID := strings.TrimSpace(c.Param("productId"))
	res, err := h.svc.RemoveItem(c.Request.Context(), cartIdentity(c), productID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header(headerCartItemCount, strconv.Itoa(res.Totals.ItemCount))
	c.JSON(http.StatusOK, mutationResponse{Success: true, Message: "item removed from cart"})
}

// fail maps engine errors to their fixed status. Internal errors are logged
// and never echoed to the caller.
func (h *cartHandler) fail(c *gin.Context, err error) {
	status, code, msg := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		h.logger.Error("cart request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, errorResponse{Success: false, Message: msg, Code: code})
}

func classify(err error) (int, string, string) {
	var stockErr *domain.StockError
	switch {
	case errors.As(err, &stockErr):
		return http.StatusBadRequest, codeInsufficientStock,
			"insufficient stock: only " + strconv.Itoa(stockErr.Available) + " available"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusBadRequest, codeInsufficientStock, "insufficient stock"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, codeInvalidQuantity,
			"quantity must be between 1 and " + strconv.Itoa(domain.MaxLineQuantity)
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, codeProductNotFound, "product not found"
	case errors.Is(err, domain.ErrLineNotFound):
		return http.StatusNotFound, codeLineNotFound, "item not found in cart"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, codeUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, codeInternal, "internal server error"
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Success: false, Message: msg, Code: codeInvalidRequest})
}

func itemOrNil(l *domain.CartLine) *cartItem {
	if l == nil {
		return nil
	}
	item := toCartItem(*l)
	return &item
}

func toCartItem(l domain.CartLine) cartItem {
	item := cartItem{
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice.InexactFloat64(),
		LineTotal: l.LineTotal().InexactFloat64(),
		AddedAt:   l.CreatedAt,
	}
	if d := l.Display; d != nil {
		item.Name = d.Name
		item.ImageURL = d.ImageURL
		item.StockQuantity = d.StockQuantity
		item.TrackQuantity = d.TrackQuantity
		item.Available = d.Available
	}
	return item
}
