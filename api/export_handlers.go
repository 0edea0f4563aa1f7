package api

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mozanhq/campaign-go/leads"
)

// ExportCSVHandler streams the lead table as a CSV download.
func (a *App) ExportCSVHandler(c *gin.Context) {
	all, err := a.Leads.GetAll()
	if err != nil {
		log.Printf("ERROR: exporting leads to CSV: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export leads"})
		return
	}

	var buf bytes.Buffer
	if err := leads.WriteCSV(&buf, all); err != nil {
		log.Printf("ERROR: rendering CSV: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export leads"})
		return
	}

	filename := fmt.Sprintf("leads-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportSnapshotHandler serves the raw serialized database image, the same
// bytes the persist path writes.
func (a *App) ExportSnapshotHandler(c *gin.Context) {
	data, err := a.Store.Snapshot()
	if err != nil {
		log.Printf("ERROR: exporting snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export database"})
		return
	}

	filename := fmt.Sprintf("leads-%s.db", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/x-sqlite3", data)
}

// DBStatusHandler reports basic store health.
func (a *App) DBStatusHandler(c *gin.Context) {
	all, err := a.Leads.GetAll()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "leadCount": len(all)})
}

// ResetHandler discards the snapshot and rebuilds an empty database with
// a fresh bootstrap. Maintenance only.
func (a *App) ResetHandler(c *gin.Context) {
	if err := a.Store.Reset(); err != nil {
		log.Printf("ERROR: resetting database: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error resetting database"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Database reset"})
}
