package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/mozanhq/campaign-go/utils"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler authenticates admin credentials and hands out a JWT, both
// in the response body and as an HTTP-only cookie.
func (a *App) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if !a.Users.Authenticate(req.Username, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	claims := jwt.MapClaims{
		"sub":  req.Username,
		"role": "admin",
		"type": "admin_auth",
	}
	token, err := utils.GenerateJWT(claims, a.Config.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
		return
	}

	c.SetCookie(
		"admin_auth", // name
		token,        // value
		86400,        // maxAge (24 hours in seconds)
		"/",          // path
		"",           // domain (empty for current domain)
		false,        // secure (set to true in production with HTTPS)
		true,         // httpOnly
	)

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"role":   "admin",
		"token":  token,
	})
}

// LogoutHandler clears the admin session cookie.
func (a *App) LogoutHandler(c *gin.Context) {
	c.SetCookie("admin_auth", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
