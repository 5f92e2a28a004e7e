package httppresentation

import (
	"errors"
	"net/http"
	"strings"

	appcart "github.com/Zhima-Mochi/restaurant-ordering/internal/application/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/application/checkout"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	"github.com/gin-gonic/gin"
)

const (
	msgInternal       = "Something went wrong, please try again later"
	msgCartEmpty      = "Your cart is empty"
	msgDishWithdrawn  = "A dish in your cart is no longer on the menu"
	msgBadTransition  = "This status change is not allowed"
	msgInvalidPayload = "Invalid request body"
	validationPrefix  = "validation: "
)

func writeMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

// writeDomainError maps use case errors to a status and a short message safe to show users.
func writeDomainError(c *gin.Context, err error) {
	_ = c.Error(err)

	var stockErr *checkout.StockError
	switch {
	case errors.As(err, &stockErr):
		writeMessage(c, http.StatusBadRequest, stockErr.Error())
	case errors.Is(err, checkout.ErrCartEmpty):
		writeMessage(c, http.StatusBadRequest, msgCartEmpty)
	case errors.Is(err, checkout.ErrDishNotFound):
		writeMessage(c, http.StatusBadRequest, msgDishWithdrawn)
	case errors.Is(err, menu.ErrNotFound):
		writeMessage(c, http.StatusNotFound, "Dish not found")
	case errors.Is(err, order.ErrNotFound):
		writeMessage(c, http.StatusNotFound, "Order not found")
	case errors.Is(err, cart.ErrNotFound):
		writeMessage(c, http.StatusNotFound, "Cart item not found")
	case errors.Is(err, inventory.ErrNotFound):
		writeMessage(c, http.StatusNotFound, "Ingredient not found")
	case errors.Is(err, order.ErrInvalidStateTransition):
		writeMessage(c, http.StatusConflict, msgBadTransition)
	case errors.Is(err, inventory.ErrInUse):
		writeMessage(c, http.StatusConflict, "This ingredient is still used by a dish")
	case errors.Is(err, appcart.ErrUnknownExtra), errors.Is(err, appcart.ErrUnknownIngredient):
		writeMessage(c, http.StatusBadRequest, strings.TrimPrefix(err.Error(), validationPrefix))
	case strings.HasPrefix(err.Error(), validationPrefix):
		writeMessage(c, http.StatusBadRequest, strings.TrimPrefix(err.Error(), validationPrefix))
	default:
		writeMessage(c, http.StatusInternalServerError, msgInternal)
	}
}
