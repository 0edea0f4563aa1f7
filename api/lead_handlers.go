package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mozanhq/campaign-go/leads"
)

// LeadRequest carries the five registrant fields. Field-level validation
// (name length, phone pattern, email format) happens in the form layer;
// the API only insists the fields are present.
type LeadRequest struct {
	FullName    string `json:"fullName" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Institution string `json:"institution" binding:"required"`
	Occupation  string `json:"occupation" binding:"required"`
}

func (r LeadRequest) newLead() leads.NewLead {
	return leads.NewLead{
		FullName:    r.FullName,
		PhoneNumber: r.PhoneNumber,
		Email:       r.Email,
		Institution: r.Institution,
		Occupation:  r.Occupation,
	}
}

// RegisterLeadHandler handles a public campaign registration.
func (a *App) RegisterLeadHandler(c *gin.Context) {
	var req LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format",
		})
		return
	}

	lead, err := a.Leads.Register(req.newLead())
	if err != nil {
		field := duplicateField(err)
		if field != "" {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"field":   field,
				"message": err.Error(),
			})
			return
		}
		log.Printf("ERROR: registering lead: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to save registration",
		})
		return
	}

	if a.Email != nil {
		go func() {
			if err := a.Email.SendLeadNotification(lead); err != nil {
				log.Printf("ERROR: sending lead notification: %v", err)
			}
		}()
	}
	if a.Events != nil {
		a.Events.BroadcastLeadCreated(lead.ID)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"lead":    lead,
	})
}

func duplicateField(err error) string {
	switch {
	case errors.Is(err, leads.ErrDuplicateEmail):
		return "email"
	case errors.Is(err, leads.ErrDuplicatePhone):
		return "phone"
	}
	return ""
}

// CheckDuplicateHandler is the advisory pre-check behind inline form
// feedback. Registration re-checks atomically regardless of the answer.
func (a *App) CheckDuplicateHandler(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		PhoneNumber string `json:"phoneNumber" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	check, err := a.Leads.CheckDuplicate(req.Email, req.PhoneNumber)
	if err != nil {
		log.Printf("ERROR: checking duplicate: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Duplicate check failed"})
		return
	}

	c.JSON(http.StatusOK, check)
}

// GetLeadsHandler returns every lead, most recent first.
func (a *App) GetLeadsHandler(c *gin.Context) {
	all, err := a.Leads.GetAll()
	if err != nil {
		log.Printf("ERROR: loading leads: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load leads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": all})
}

// UpdateLeadHandler overwrites the five editable fields of one lead.
func (a *App) UpdateLeadHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid lead id"})
		return
	}

	var req LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request format"})
		return
	}

	if err := a.Leads.Update(id, req.newLead()); err != nil {
		field := duplicateField(err)
		if field != "" {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"field":   field,
				"message": err.Error(),
			})
			return
		}
		log.Printf("ERROR: updating lead %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating lead"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Lead updated successfully"})
}

// UpdateLeadTrackingHandler replaces all four call/visit tracking fields.
// Omitted or null fields clear the stored values.
func (a *App) UpdateLeadTrackingHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid lead id"})
		return
	}

	var tracking leads.Tracking
	if err := c.ShouldBindJSON(&tracking); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request format"})
		return
	}

	if err := a.Leads.UpdateTracking(id, tracking); err != nil {
		log.Printf("ERROR: updating lead tracking %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating lead tracking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Lead tracking updated successfully"})
}

// ClearLeadsHandler deletes every lead. Maintenance only; irreversible.
func (a *App) ClearLeadsHandler(c *gin.Context) {
	if err := a.Leads.Clear(); err != nil {
		log.Printf("ERROR: clearing leads: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error clearing leads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "All leads deleted"})
}

// DashboardStatsHandler returns the aggregates behind the admin dashboard.
func (a *App) DashboardStatsHandler(c *gin.Context) {
	stats, err := a.Leads.Stats()
	if err != nil {
		log.Printf("ERROR: computing dashboard stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
