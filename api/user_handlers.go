package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mozanhq/campaign-go/users"
)

// GetUsersHandler lists admin-panel users. Passwords never appear here.
func (a *App) GetUsersHandler(c *gin.Context) {
	all, err := a.Users.GetAll()
	if err != nil {
		log.Printf("ERROR: loading users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": all})
}

// AddUserHandler creates a new admin-panel user.
func (a *App) AddUserHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request format"})
		return
	}

	if err := a.Users.Add(req.Username, req.Password); err != nil {
		if errors.Is(err, users.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Username already exists"})
			return
		}
		log.Printf("ERROR: adding user %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error adding user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User added successfully"})
}

// DeleteUserHandler removes a user, refusing to delete the last admin.
func (a *App) DeleteUserHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user id"})
		return
	}

	if err := a.Users.Delete(id); err != nil {
		if errors.Is(err, users.ErrLastAdmin) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Cannot delete the last admin user"})
			return
		}
		log.Printf("ERROR: deleting user %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error deleting user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted successfully"})
}

// UpdateUserPasswordHandler overwrites a user's password.
func (a *App) UpdateUserPasswordHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user id"})
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request format"})
		return
	}

	if err := a.Users.UpdatePassword(id, req.Password); err != nil {
		log.Printf("ERROR: updating password for user %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated successfully"})
}
