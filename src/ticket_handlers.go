package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"tixcore/src/db"
	"tixcore/src/models"

	"github.com/gin-gonic/gin"
	"github.com/yeqown/go-qrcode"
)

func ticketHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/tickets", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var tickets []models.Ticket
			db := db.GetDb()
			if err := db.
				Model(&models.Ticket{}).
				Where(&models.Ticket{HolderID: userId}).
				Preload("Event").
				Limit(100).
				Find(&tickets).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets, "count": len(tickets)})
		}).
		GET("/tickets/:code/qr", func(ctx *gin.Context) {
			var params struct {
				Code string `uri:"code" binding:"required"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			userId := ctx.GetUint("id")
			role := ctx.GetString("role")
			var ticket models.Ticket
			db := db.GetDb()
			if err := db.
				Model(&models.Ticket{}).
				Where(&models.Ticket{UniqueCode: params.Code}).
				First(&ticket).
				Error; err != nil {
				ctx.Status(http.StatusNotFound)
				return
			}
			if ticket.HolderID != userId && role != "admin" {
				ctx.Status(http.StatusForbidden)
				return
			}

			qrc, err := qrcode.New(ticket.UniqueCode)
			if err != nil {
				log.Printf("Error building qrcode for ticket %s: %s\n", ticket.UniqueCode, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			tempdir := os.Getenv("TEMP_DIR")
			if tempdir == "" {
				tempdir = os.TempDir()
			}
			filepath := path.Join(tempdir, fmt.Sprintf("%s.jpeg", ticket.UniqueCode))
			if err := qrc.Save(filepath); err != nil {
				log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
			ctx.FileAttachment(filepath, "eticket.jpeg")
		})
	return g
}
