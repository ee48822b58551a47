// internal/api/handlers/material_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"greencycle-api-server/internal/models"
	"greencycle-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

type MaterialHandler struct {
	Materials *store.MaterialStore
}

type CreateMaterialRequest struct {
	MaterialID        string  `json:"materialID" binding:"required"`
	DisplayName       string  `json:"displayName" binding:"required"`
	AveragePricePerKg float64 `json:"averagePricePerKg" binding:"min=0"`
}

type UpdateMaterialRequest struct {
	DisplayName       string  `json:"displayName" binding:"required"`
	AveragePricePerKg float64 `json:"averagePricePerKg" binding:"min=0"`
}

// ListMaterials returns the active materials catalog.
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		status = "ACTIVE"
	}
	materials, err := h.Materials.FindAll(context.Background(), status)
	if err != nil {
		respondPickupError(c, err)
		return
	}
	c.JSON(http.StatusOK, materials)
}

// CreateMaterial adds a material to the catalog (admin only).
func (h *MaterialHandler) CreateMaterial(c *gin.Context) {
	var req CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.Materials.GetByMaterialID(context.Background(), req.MaterialID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Material with this ID already exists"})
		return
	}

	newMaterial := models.Material{
		MaterialID:        req.MaterialID,
		DisplayName:       req.DisplayName,
		AveragePricePerKg: req.AveragePricePerKg,
		Status:            "ACTIVE",
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	if err := h.Materials.Insert(context.Background(), &newMaterial); err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newMaterial)
}

// UpdateMaterial updates display name and average price (admin only).
func (h *MaterialHandler) UpdateMaterial(c *gin.Context) {
	var req UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Materials.Update(context.Background(), c.Param("id"), bson.M{
		"displayName":       req.DisplayName,
		"averagePricePerKg": req.AveragePricePerKg,
	})
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Material updated successfully"})
}

// RetireMaterial takes a material out of the catalog without breaking
// completion records that reference it (admin only).
func (h *MaterialHandler) RetireMaterial(c *gin.Context) {
	if err := h.Materials.Retire(context.Background(), c.Param("id")); err != nil {
		respondPickupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Material retired successfully"})
}
