package handlers

import (
	"net/http"
	"wishlist/api/middleware"

	"github.com/gin-gonic/gin"
)

func Follow(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := followService.Follow(c.Request.Context(), user.ID, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Followed"})
}

func Unfollow(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := followService.Unfollow(c.Request.Context(), user.ID, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unfollowed"})
}
