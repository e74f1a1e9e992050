package main

import (
	"errors"
	"log"
	"net/http"
	"tixcore/src/common"
	"tixcore/src/types"

	"github.com/gin-gonic/gin"
)

func scanHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/scan", func(ctx *gin.Context) {
			var body types.ScanTicketRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			scannerId := ctx.GetUint("id")
			role := ctx.GetString("role")
			orgId := ctx.GetUint("org")

			ticket, err := common.ScanTicket(body.Code, scannerId, role, orgId)
			if err != nil {
				var scanErr *common.ScanError
				if errors.As(err, &scanErr) {
					status := http.StatusBadRequest
					switch scanErr.Kind {
					case common.ScanNotFound:
						status = http.StatusNotFound
					case common.ScanAlreadyUsed:
						status = http.StatusConflict
					case common.ScanNotAuthorized:
						status = http.StatusForbidden
					case common.ScanEventNotStarted:
						status = http.StatusForbidden
					}
					ctx.JSON(status, gin.H{"error": scanErr.Message, "code": scanErr.Kind})
					return
				}
				log.Printf("Error on Ticket scan: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Error while processing request"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		})
	return g
}
