package main

import (
	"net/http"
	"tixcore/src/db"
	"tixcore/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func transactionHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/transactions", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var transactions []models.Transaction
			db := db.GetDb()
			if err := db.
				Model(&models.Transaction{}).
				Where(&models.Transaction{BuyerID: userId}).
				Order("created_at DESC").
				Limit(100).
				Find(&transactions).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": transactions, "count": len(transactions)})
		}).
		GET("/transactions/:id", func(ctx *gin.Context) {
			var params struct {
				ID string `uri:"id" binding:"required,uuid"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			txnId := uuid.MustParse(params.ID)
			userId := ctx.GetUint("id")
			role := ctx.GetString("role")
			var transaction models.Transaction
			db := db.GetDb()
			if err := db.
				Model(&models.Transaction{}).
				Where(&models.Transaction{ID: txnId}).
				Preload("Tickets").
				First(&transaction).
				Error; err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			if transaction.BuyerID != userId && role != "admin" {
				ctx.Status(http.StatusForbidden)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": transaction})
		}).
		GET("/reconciliations", func(ctx *gin.Context) {
			role := ctx.GetString("role")
			if role != "admin" {
				ctx.Status(http.StatusForbidden)
				return
			}
			var transactions []models.Transaction
			db := db.GetDb()
			if err := db.
				Model(&models.Transaction{}).
				Where(&models.Transaction{NeedsReconciliation: true}).
				Order("updated_at DESC").
				Limit(100).
				Find(&transactions).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": transactions, "count": len(transactions)})
		})
	return g
}
