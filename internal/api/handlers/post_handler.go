// internal/api/handlers/post_handler.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"greencycle-api-server/internal/models"
	"greencycle-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PostHandler struct {
	Posts    *store.PostStore
	Messages *store.MessageStore
	Pickups  *store.PickupStore
}

type CreatePostRequest struct {
	Type        string         `json:"type" binding:"required,oneof=WASTE INITIATIVE FORUM"`
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description" binding:"required"`
	MaterialIDs []string       `json:"materialIDs"`
	Address     models.Address `json:"address"`
}

// CreatePost tạo một bài đăng mới. Bài đăng WASTE bắt đầu ở trạng thái ACTIVE.
func (h *PostHandler) CreatePost(c *gin.Context) {
	ownerID := c.GetString("user_id")

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newPost := models.Post{
		PostID:      fmt.Sprintf("POST-%s", strings.ToUpper(uuid.New().String()[:8])),
		Type:        req.Type,
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		MaterialIDs: req.MaterialIDs,
		Address:     req.Address,
		Status:      models.PostStatusActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := h.Posts.Insert(context.Background(), &newPost); err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newPost)
}

// GetPost lấy thông tin bài đăng theo postID.
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.Posts.GetByPostID(context.Background(), c.Param("id"))
	if err != nil {
		respondPickupError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// ListPosts lists posts filtered by optional status/type/owner query params.
func (h *PostHandler) ListPosts(c *gin.Context) {
	posts, err := h.Posts.Find(context.Background(), c.Query("status"), c.Query("type"), c.Query("ownerID"))
	if err != nil {
		respondPickupError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetPostMessages returns the conversation log for a post. Only the post
// owner, a party to a pickup on the post, or an admin may read it.
func (h *PostHandler) GetPostMessages(c *gin.Context) {
	postID := c.Param("id")
	userID := c.GetString("user_id")
	role := c.GetString("user_role")

	post, err := h.Posts.GetByPostID(context.Background(), postID)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	if role != models.RoleAdmin && post.OwnerID != userID {
		pickups, err := h.Pickups.FindByParty(context.Background(), userID, "")
		if err != nil {
			respondPickupError(c, err)
			return
		}
		party := false
		for _, p := range pickups {
			if p.PostID == postID {
				party = true
				break
			}
		}
		if !party {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a participant in this conversation"})
			return
		}
	}

	messages, err := h.Messages.ListByPostID(context.Background(), postID)
	if err != nil {
		respondPickupError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}
