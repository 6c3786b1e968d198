package controllers

import (
	"strconv"

	"brunopizza/entity"
	"brunopizza/pkg/resp"
	"brunopizza/repository"
	"brunopizza/services"

	"github.com/gin-gonic/gin"
)

type AdminOrderController struct{ Orders *services.OrderService }

func NewAdminOrderController(orders *services.OrderService) *AdminOrderController {
	return &AdminOrderController{Orders: orders}
}

// GET /admin/orders?status=&paymentStatus=&paymentMethod=&page=&limit=
func (ac *AdminOrderController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	f := repository.OrderFilter{
		Status:        entity.OrderStatus(c.Query("status")),
		PaymentStatus: entity.PaymentStatus(c.Query("paymentStatus")),
		PaymentMethod: entity.PaymentMethod(c.Query("paymentMethod")),
	}

	out, err := ac.Orders.List(c.Request.Context(), f, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	resp.OK(c, out)
}

type statusReq struct {
	Status entity.OrderStatus `json:"status" binding:"required"`
}

type paymentStatusReq struct {
	PaymentStatus entity.PaymentStatus `json:"paymentStatus" binding:"required"`
}

type noteReq struct {
	Note string `json:"note"`
}

// PATCH /admin/orders/:id/status
func (ac *AdminOrderController) UpdateStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	o, err := ac.Orders.TransitionStatus(c.Request.Context(), c.Param("id"), req.Status, currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	resp.OK(c, o)
}

// PATCH /admin/orders/:id/payment-status
func (ac *AdminOrderController) UpdatePaymentStatus(c *gin.Context) {
	var req paymentStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	o, err := ac.Orders.TransitionPayment(c.Request.Context(), c.Param("id"), req.PaymentStatus, currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	resp.OK(c, o)
}

// PATCH /admin/orders/:id/note
func (ac *AdminOrderController) UpdateNote(c *gin.Context) {
	var req noteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	if err := ac.Orders.UpdateNote(c.Request.Context(), c.Param("id"), req.Note); err != nil {
		writeError(c, err)
		return
	}
	resp.OK(c, gin.H{"id": c.Param("id"), "note": req.Note})
}

// GET /admin/orders/:id/history
func (ac *AdminOrderController) History(c *gin.Context) {
	logs, err := ac.Orders.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp.OK(c, gin.H{"items": logs})
}
