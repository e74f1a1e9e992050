package main

import (
	"errors"
	"log"
	"net/http"
	"tixcore/src/common"
	"tixcore/src/types"

	"github.com/gin-gonic/gin"
)

func checkoutHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/checkout", func(ctx *gin.Context) {
			var body types.CreateCheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			result, err := common.CreateCheckout(body.EventID, body.Quantity, userId)
			if err != nil {
				log.Printf("Error on checkout: %s\n", err.Error())
				switch {
				case errors.Is(err, common.ErrEventNotFound):
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				case errors.Is(err, common.ErrInsufficientStock),
					errors.Is(err, common.ErrEventInThePast),
					errors.Is(err, common.ErrEventNotOnSale):
					ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				default:
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "Error while processing request"})
				}
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		})
	return g
}
