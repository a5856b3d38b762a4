package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/unibook/internal/models"
	"github.com/joshua-takyi/unibook/internal/services"
)

func CreateResource(r *services.ResourceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var resource models.Resource
		if err := c.ShouldBindJSON(&resource); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		created, err := r.CreateResource(c.Request.Context(), p, &resource)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(created, "Resource created successfully"))
	}
}

func ListResources(r *services.ResourceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		offset, limit, ok := pagination(c)
		if !ok {
			return
		}
		filter := models.ResourceFilter{
			Type:   models.ResourceType(c.Query("type")),
			Query:  c.Query("q"),
			Offset: offset,
			Limit:  limit,
		}

		page, err := r.ListResources(c.Request.Context(), filter)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(page.Resources, offset/limit+1, limit, page.Total))
	}
}

func GetResource(r *services.ResourceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		resource, err := r.GetResource(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(resource, ""))
	}
}

func UpdateResource(r *services.ResourceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var update models.ResourceUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		updated, err := r.UpdateResource(c.Request.Context(), p, c.Param("id"), &update)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(updated, "Resource updated successfully"))
	}
}

func DeleteResource(r *services.ResourceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		if err := r.DeleteResource(c.Request.Context(), p, c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Resource deleted successfully"})
	}
}
