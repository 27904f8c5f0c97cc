package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/imyashkale/mcpcatalog/internal/models"
	"github.com/imyashkale/mcpcatalog/internal/repository"
)

// ServerHandler handles catalog browsing requests
type ServerHandler struct {
	repo repository.ServerRepository
}

// NewServerHandler creates a new server handler
func NewServerHandler(repo repository.ServerRepository) *ServerHandler {
	return &ServerHandler{
		repo: repo,
	}
}

// List handles listing all catalog records with optional search
func (h *ServerHandler) List(c *gin.Context) {
	searchTerm := strings.ToLower(c.Query("search"))

	servers, err := h.repo.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to retrieve servers",
		})
		return
	}

	responses := make([]models.ServerResponse, 0, len(servers))
	for _, server := range servers {
		if searchTerm != "" &&
			!strings.Contains(strings.ToLower(server.Name), searchTerm) &&
			!strings.Contains(strings.ToLower(server.Description), searchTerm) {
			continue
		}
		responses = append(responses, server.ToResponse())
	}

	c.JSON(http.StatusOK, models.ServerListResponse{
		Servers: responses,
		Total:   len(responses),
	})
}

// Get handles retrieving a single catalog record by name
func (h *ServerHandler) Get(c *gin.Context) {
	name := c.Param("name")

	server, err := h.repo.Get(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Server not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to retrieve server",
		})
		return
	}

	c.JSON(http.StatusOK, server.ToResponse())
}

// Delete handles removing a catalog record by name
func (h *ServerHandler) Delete(c *gin.Context) {
	name := c.Param("name")

	if err := h.repo.Delete(c.Request.Context(), name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Server not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to delete server",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Server deleted",
		"name":    name,
	})
}
