package controllers

import (
	"errors"
	"net/http"

	"brunopizza/services"

	"github.com/gin-gonic/gin"
)

// BankingController receives the payment gateway webhook. It answers in the
// gateway's format ({success} / {error}), not the API envelope.
type BankingController struct{ Reconciler *services.ReconcileService }

func NewBankingController(r *services.ReconcileService) *BankingController {
	return &BankingController{Reconciler: r}
}

// POST /banking/webhook
func (bc *BankingController) Webhook(c *gin.Context) {
	var ev services.BankEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	res, err := bc.Reconciler.Reconcile(c.Request.Context(), ev)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "matched": res.Matched})
}
