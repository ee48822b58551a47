// internal/api/handlers/pickup_handler.go
package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"greencycle-api-server/internal/models"
	"greencycle-api-server/internal/pickup"
	"greencycle-api-server/internal/s3"
	"greencycle-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PickupHandler struct {
	Service    *pickup.Service
	Pickups    *store.PickupStore
	S3Uploader *s3.Uploader
}

// --- Structs cho Request Body ---

type ProposePickupRequest struct {
	PostID  string                 `json:"postID" binding:"required"`
	Details pickup.ProposalDetails `json:"details" binding:"required"`
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

type CompleteRequest struct {
	Lines         []pickup.CompletionLineInput `json:"lines" binding:"required,dive"`
	PaymentMethod string                       `json:"paymentMethod" binding:"required"`
	Notes         string                       `json:"notes"`
}

// --- Handlers ---

// ProposePickup creates a PROPOSED pickup against an active waste post.
func (h *PickupHandler) ProposePickup(c *gin.Context) {
	collectorID := c.GetString("user_id")

	var req ProposePickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.Service.Propose(context.Background(), req.PostID, collectorID, req.Details)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// EditProposal updates the negotiable details of a PROPOSED pickup.
func (h *PickupHandler) EditProposal(c *gin.Context) {
	actorID := c.GetString("user_id")

	var details pickup.ProposalDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.Service.EditProposal(context.Background(), c.Param("id"), actorID, details)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Transition moves the pickup to the requested status. The denial reason,
// if any, is returned verbatim to the caller.
func (h *PickupHandler) Transition(c *gin.Context) {
	actorID := c.GetString("user_id")
	actorRole := c.GetString("user_role")

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.Service.ApplyTransition(context.Background(), c.Param("id"), actorID, actorRole, req.Status)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Complete records the material breakdown and closes the pickup.
func (h *PickupHandler) Complete(c *gin.Context) {
	actorID := c.GetString("user_id")

	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.Service.Complete(context.Background(), c.Param("id"), actorID, req.Lines, req.PaymentMethod, req.Notes)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// GetPickup returns one pickup. Only its parties and admins may read it.
func (h *PickupHandler) GetPickup(c *gin.Context) {
	userID := c.GetString("user_id")
	role := c.GetString("user_role")

	p, err := h.Pickups.GetByPickupID(context.Background(), c.Param("id"))
	if err != nil {
		respondPickupError(c, err)
		return
	}

	if role != models.RoleAdmin && p.PartyOf(userID) == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a party to this pickup"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// GetMyPickups lists pickups where the caller is giver or collector,
// optionally filtered by ?status=.
func (h *PickupHandler) GetMyPickups(c *gin.Context) {
	userID := c.GetString("user_id")

	status := c.Query("status")
	if status != "" && !models.PickupStatusValid(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status filter"})
		return
	}

	pickups, err := h.Pickups.FindByParty(context.Background(), userID, status)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusOK, pickups)
}

// UploadProofPhoto stores a pickup proof photo on S3 and attaches it to
// the pickup record.
func (h *PickupHandler) UploadProofPhoto(c *gin.Context) {
	actorID := c.GetString("user_id")
	pickupID := c.Param("id")

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A 'photo' file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	// Hash the content so the proof can be checked against the stored URL.
	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash uploaded file"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rewind uploaded file"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	objectKey := fmt.Sprintf("proofs/%s/%d-%s", pickupID, time.Now().Unix(), fileHeader.Filename)

	url, err := h.S3Uploader.UploadFile(context.Background(), file, objectKey, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload photo", "details": err.Error()})
		return
	}

	photo := models.MediaPointer{
		ID:       uuid.New().String(),
		URL:      url,
		FileName: fileHeader.Filename,
		FileType: contentType,
	}

	p, err := h.Service.AddProofPhoto(context.Background(), pickupID, actorID, photo)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"photoURL":  url,
		"photoHash": hex.EncodeToString(hasher.Sum(nil)),
		"pickup":    p,
	})
}
