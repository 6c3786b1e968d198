package controllers

import (
	"strconv"

	"brunopizza/pkg/resp"
	"brunopizza/services"

	"github.com/gin-gonic/gin"
)

type VoucherController struct{ Vouchers *services.VoucherService }

func NewVoucherController(vouchers *services.VoucherService) *VoucherController {
	return &VoucherController{Vouchers: vouchers}
}

type checkVoucherReq struct {
	Code     string `json:"code" binding:"required"`
	Subtotal int64  `json:"subtotal" binding:"min=0"`
}

// POST /vouchers/check
func (vc *VoucherController) Check(c *gin.Context) {
	var req checkVoucherReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	q, err := vc.Vouchers.Quote(c.Request.Context(), req.Code, req.Subtotal)
	if err != nil {
		writeError(c, err)
		return
	}
	resp.OK(c, q)
}

// GET /admin/vouchers
func (vc *VoucherController) List(c *gin.Context) {
	items, err := vc.Vouchers.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	resp.OK(c, gin.H{"items": items})
}

// POST /admin/vouchers
func (vc *VoucherController) Create(c *gin.Context) {
	var req services.CreateVoucherReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	v, err := vc.Vouchers.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	resp.Created(c, v)
}

// PATCH /admin/vouchers/:id
func (vc *VoucherController) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		resp.BadRequest(c, "invalid voucher id")
		return
	}
	var req services.UpdateVoucherReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	v, err := vc.Vouchers.Update(c.Request.Context(), uint(id), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	resp.OK(c, v)
}
