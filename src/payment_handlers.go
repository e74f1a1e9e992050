package main

import (
	"io"
	"log"
	"net/http"
	"tixcore/src/common"

	"github.com/gin-gonic/gin"
)

// paymentWebhookRoute registers the gateway notification endpoint. The
// gateway redelivers on any non-2xx, so the handler always answers with the
// status the pipeline decided on, and never leaks internal detail.
func paymentWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/payments/notification", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		outcome, status, err := common.ProcessGatewayNotification(payload)
		if err != nil {
			log.Printf("[Webhook] order rejected: %s\n", err.Error())
			ctx.Status(status)
			return
		}
		ctx.JSON(status, gin.H{"status": "ok", "data": outcome})
	})
	return apiv1
}
