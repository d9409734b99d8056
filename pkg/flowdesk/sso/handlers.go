package sso

import (
	"log"
	"net/http"

	"github.com/flowdesk/flowdesk/pkg/flowdesk/auth"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler exposes the SSO token service over HTTP
type Handler struct {
	svc *Service
}

// NewHandler creates a new SSO handler
func NewHandler(db *gorm.DB, cfg Config) *Handler {
	return &Handler{svc: NewService(db, cfg)}
}

// Service returns the underlying token service, for wiring the housekeeper
func (h *Handler) Service() *Service {
	return h.svc
}

// IssueTokenRequest represents the issuance request body
type IssueTokenRequest struct {
	ModuleSlug string `json:"module_slug" binding:"required"`
}

// VerifyTokenRequest represents the verification request body
type VerifyTokenRequest struct {
	Token        string `json:"token" binding:"required"`
	ClientID     string `json:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" binding:"required"`
}

// IssueToken mints an SSO token for the authenticated user
// @Summary Issue an SSO token
// @Description Mint a short-lived single-use token delegating the current session into a module
// @Tags sso
// @Accept json
// @Produce json
// @Param request body IssueTokenRequest true "Target module"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Eligibility or validation failure"
// @Security BearerAuth
// @Router /sso/token [post]
func (h *Handler) IssueToken(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	orgID, _ := auth.GetOrgID(c)

	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Issue(userID, orgID, req.ModuleSlug)
	if err != nil {
		if ssoErr, ok := AsError(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": ssoErr.Code})
			return
		}
		log.Printf("SSO issue failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue SSO token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "SSO token issued",
		"data":    result,
	})
}

// VerifyToken verifies and consumes an SSO token on behalf of a module
// @Summary Verify an SSO token
// @Description Authenticate as a module and exchange a token for the delegated identity
// @Tags sso
// @Accept json
// @Produce json
// @Param request body VerifyTokenRequest true "Token and client credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{} "Token or credential failure"
// @Failure 500 {object} map[string]interface{} "Unexpected internal failure"
// @Router /sso/verify [post]
func (h *Handler) VerifyToken(c *gin.Context) {
	var req VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "valid": false})
		return
	}

	result, err := h.svc.Verify(req.Token, req.ClientID, req.ClientSecret)
	if err != nil {
		if ssoErr, ok := AsError(err); ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": ssoErr.Code, "valid": false})
			return
		}
		log.Printf("SSO verify failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify SSO token", "valid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "SSO token verified",
		"data":    result,
	})
}

// Logout invalidates all outstanding SSO tokens of the authenticated user
// @Summary SSO logout
// @Description Mark every outstanding SSO token of the current user as used
// @Tags sso
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /sso/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	count, err := h.svc.InvalidateAll(userID)
	if err != nil {
		log.Printf("SSO logout failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invalidate SSO tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "SSO tokens invalidated",
		"data":    gin.H{"invalidated": count},
	})
}

// RegisterRoutes registers SSO routes. Issue and logout require a platform
// session; verify is public and authenticates via client credentials. The
// limiter middlewares may be nil when no rate limiting is wanted (tests).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, perUserLimit, verifyLimit gin.HandlerFunc) {
	sessionAuth := auth.AuthMiddleware()

	issue := []gin.HandlerFunc{sessionAuth}
	logout := []gin.HandlerFunc{sessionAuth}
	verify := []gin.HandlerFunc{}
	if perUserLimit != nil {
		issue = append(issue, perUserLimit)
		logout = append(logout, perUserLimit)
	}
	if verifyLimit != nil {
		verify = append(verify, verifyLimit)
	}

	rg.POST("/token", append(issue, h.IssueToken)...)
	rg.POST("/verify", append(verify, h.VerifyToken)...)
	rg.POST("/logout", append(logout, h.Logout)...)
}
