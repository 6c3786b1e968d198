package controllers

import (
	"strconv"

	"brunopizza/pkg/resp"
	"brunopizza/services"
	"brunopizza/utils"

	"github.com/gin-gonic/gin"
)

type OrderController struct{ Orders *services.OrderService }

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// POST /orders (guest or signed-in customer)
func (oc *OrderController) Create(c *gin.Context) {
	var req services.CreateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	out, err := oc.Orders.Create(c.Request.Context(), currentActor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	resp.Created(c, out)
}

// GET /orders/:id
func (oc *OrderController) Detail(c *gin.Context) {
	o, err := oc.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp.OK(c, o)
}

// GET /profile/orders
func (oc *OrderController) ListForMe(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	out, err := oc.Orders.ListForUser(c.Request.Context(), utils.CurrentUserID(c), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	resp.OK(c, out)
}
