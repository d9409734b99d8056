package modules

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/flowdesk/flowdesk/pkg/flowdesk/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SecretLength is the length of generated client secrets in bytes (32 bytes = 64 hex chars)
const SecretLength = 32

// Handler handles module registry administration
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new module registry handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// ModuleResponse represents a module in responses. The client secret is
// never included; it is returned only by Create and RotateSecret.
type ModuleResponse struct {
	ID        uint      `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	IsActive  bool      `json:"is_active"`
	Type      string    `json:"type"`
	ClientID  string    `json:"client_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateModuleRequest represents a request to register a module
type CreateModuleRequest struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name" binding:"required"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// UpdateModuleRequest represents a request to update a module
type UpdateModuleRequest struct {
	Name     *string `json:"name"`
	URL      *string `json:"url"`
	IsActive *bool   `json:"is_active"`
}

// CreateModuleResponse includes the client secret (only shown once)
type CreateModuleResponse struct {
	ModuleResponse
	ClientSecret string `json:"client_secret"`
}

// EntitlementRequest represents a request to grant an entitlement
type EntitlementRequest struct {
	ModuleID uint `json:"module_id" binding:"required"`
}

// generateClientSecret generates a new random client secret
func generateClientSecret() (string, error) {
	bytes := make([]byte, SecretLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func toModuleResponse(m *models.Module) ModuleResponse {
	return ModuleResponse{
		ID:        m.ID,
		Slug:      m.Slug,
		Name:      m.Name,
		URL:       m.URL,
		IsActive:  m.IsActive,
		Type:      string(m.Type),
		ClientID:  m.ClientID,
		CreatedAt: m.CreatedAt,
	}
}

// List returns all registered modules
func (h *Handler) List(c *gin.Context) {
	var mods []models.Module
	if err := h.db.Order("slug").Find(&mods).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch modules"})
		return
	}

	responses := make([]ModuleResponse, len(mods))
	for i := range mods {
		responses[i] = toModuleResponse(&mods[i])
	}
	c.JSON(http.StatusOK, responses)
}

// Create registers a new module and returns its client credentials.
// The client secret is visible only in this response.
func (h *Handler) Create(c *gin.Context) {
	var req CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	moduleType := models.ModuleTypeBuiltin
	if req.Type != "" {
		if req.Type != string(models.ModuleTypeBuiltin) && req.Type != string(models.ModuleTypeExternal) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid module type"})
			return
		}
		moduleType = models.ModuleType(req.Type)
	}

	var existing models.Module
	if err := h.db.Where("slug = ?", req.Slug).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Module slug already registered"})
		return
	}

	secret, err := generateClientSecret()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate client secret"})
		return
	}

	module := models.Module{
		Slug:         req.Slug,
		Name:         req.Name,
		URL:          req.URL,
		IsActive:     true,
		Type:         moduleType,
		ClientID:     uuid.NewString(),
		ClientSecret: secret,
	}
	if err := h.db.Create(&module).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create module"})
		return
	}

	c.JSON(http.StatusCreated, CreateModuleResponse{
		ModuleResponse: toModuleResponse(&module),
		ClientSecret:   secret,
	})
}

// Update edits a module's name, URL, or active flag
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid module ID"})
		return
	}

	var module models.Module
	if err := h.db.First(&module, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
		return
	}

	var req UpdateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		module.Name = *req.Name
	}
	if req.URL != nil {
		module.URL = *req.URL
	}
	if req.IsActive != nil {
		module.IsActive = *req.IsActive
	}

	if err := h.db.Save(&module).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update module"})
		return
	}

	c.JSON(http.StatusOK, toModuleResponse(&module))
}

// RotateSecret replaces a module's client secret.
// The new secret is visible only in this response.
func (h *Handler) RotateSecret(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid module ID"})
		return
	}

	var module models.Module
	if err := h.db.First(&module, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
		return
	}

	secret, err := generateClientSecret()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate client secret"})
		return
	}

	module.ClientSecret = secret
	if err := h.db.Save(&module).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rotate client secret"})
		return
	}

	c.JSON(http.StatusOK, CreateModuleResponse{
		ModuleResponse: toModuleResponse(&module),
		ClientSecret:   secret,
	})
}

// Delete removes a module from the registry
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid module ID"})
		return
	}

	var module models.Module
	if err := h.db.First(&module, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
		return
	}

	if err := h.db.Delete(&module).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete module"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Module deleted"})
}

// GrantEntitlement activates an external module for an organization.
// A revoked entitlement is reactivated rather than duplicated.
func (h *Handler) GrantEntitlement(c *gin.Context) {
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}

	var req EntitlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}
	var module models.Module
	if err := h.db.First(&module, req.ModuleID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Module not found"})
		return
	}

	var entitlement models.ModuleEntitlement
	err = h.db.Where("organization_id = ? AND module_id = ?", orgID, req.ModuleID).First(&entitlement).Error
	if err == nil {
		entitlement.IsActive = true
		if err := h.db.Save(&entitlement).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant entitlement"})
			return
		}
		c.JSON(http.StatusOK, entitlement)
		return
	}

	entitlement = models.ModuleEntitlement{
		OrganizationID: uint(orgID),
		ModuleID:       req.ModuleID,
		IsActive:       true,
	}
	if err := h.db.Create(&entitlement).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant entitlement"})
		return
	}

	c.JSON(http.StatusCreated, entitlement)
}

// RevokeEntitlement deactivates an organization's entitlement to a module
func (h *Handler) RevokeEntitlement(c *gin.Context) {
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}
	moduleID, err := strconv.ParseUint(c.Param("moduleId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid module ID"})
		return
	}

	var entitlement models.ModuleEntitlement
	if err := h.db.Where("organization_id = ? AND module_id = ?", orgID, moduleID).First(&entitlement).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entitlement not found"})
		return
	}

	entitlement.IsActive = false
	if err := h.db.Save(&entitlement).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke entitlement"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Entitlement revoked"})
}

// RegisterRoutes registers module registry admin routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/modules", h.List)
	rg.POST("/modules", h.Create)
	rg.PUT("/modules/:id", h.Update)
	rg.POST("/modules/:id/rotate-secret", h.RotateSecret)
	rg.DELETE("/modules/:id", h.Delete)
	rg.POST("/organizations/:id/modules", h.GrantEntitlement)
	rg.DELETE("/organizations/:id/modules/:moduleId", h.RevokeEntitlement)
}
