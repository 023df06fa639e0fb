package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
	"wishlist/api/middleware"
	"wishlist/models"
	"wishlist/services"

	"github.com/gin-gonic/gin"
)

const maxProfileImageSize = 10 << 20 // 10 MB

type CurrentUserUpdateRequest struct {
	DisplayName string  `json:"display_name" binding:"required"`
	Gender      *string `json:"gender"`
	BirthDate   *string `json:"birth_date"`
}

// CurrentUserGet отдает профиль текущего пользователя вместе
// со списками подписок в обе стороны
func CurrentUserGet(c *gin.Context) {
	user := middleware.CurrentUser(c)

	follows, err := followService.Follows(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	followers, err := followService.Followers(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"follows":     follows,
		"followed_by": followers,
	})
}

func CurrentUserUpdate(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req CurrentUserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	update := services.ProfileUpdate{DisplayName: req.DisplayName}
	if req.Gender != nil {
		gender := models.Gender(*req.Gender)
		if gender != models.MALE && gender != models.FEMALE {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Gender must be 'male' or 'female'"})
			return
		}
		update.Gender = &gender
	}
	if req.BirthDate != nil {
		birthDate, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid birth_date format. Use YYYY-MM-DD"})
			return
		}
		update.BirthDate = &birthDate
	}

	if err := userService.UpdateProfile(c.Request.Context(), user.ID, update); err != nil {
		abortWithError(c, err)
		return
	}

	updated, err := userService.GetByID(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": updated})
}

func UserGet(c *gin.Context) {
	viewer := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	user, err := userService.GetByID(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	annotated, err := followService.Annotate(c.Request.Context(), viewer.ID, []models.User{*user})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": annotated[0]})
}

// UserSearch ищет пользователей по подстроке имени. Пустой запрос
// возвращает пустой список, а не ошибку.
func UserSearch(c *gin.Context) {
	viewer := middleware.CurrentUser(c)

	users, err := userService.Search(c.Request.Context(), viewer.ID, c.Query("q"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	annotated, err := followService.Annotate(c.Request.Context(), viewer.ID, users)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": annotated})
}

func UserFollowers(c *gin.Context) {
	listFollowEdgeUsers(c, followService.Followers)
}

func UserFollows(c *gin.Context) {
	listFollowEdgeUsers(c, followService.Follows)
}

func listFollowEdgeUsers(c *gin.Context, load func(ctx context.Context, userID int64) ([]models.User, error)) {
	viewer := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}
	if _, err := userService.GetByID(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	users, err := load(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	annotated, err := followService.Annotate(c.Request.Context(), viewer.ID, users)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": annotated})
}

// PossibleFriends - зарегистрированные VK-друзья, на которых
// текущий пользователь еще не подписан
func PossibleFriends(c *gin.Context) {
	viewer := middleware.CurrentUser(c)

	users, err := userService.PossibleFriends(c.Request.Context(), viewer)
	if err != nil {
		abortWithError(c, err)
		return
	}

	annotated, err := followService.Annotate(c.Request.Context(), viewer.ID, users)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": annotated})
}

func InviteLink(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"link": services.UserDeepLink(user.ID)})
}

func SetProfileImage(c *gin.Context) {
	user := middleware.CurrentUser(c)

	content, ok := readUploadedFile(c)
	if !ok {
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	baseURL := scheme + "://" + c.Request.Host

	if err := userService.SetProfileImage(c.Request.Context(), user.ID, content, baseURL); err != nil {
		abortWithError(c, err)
		return
	}

	updated, err := userService.GetByID(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": updated})
}

func DeleteProfileImage(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if err := userService.DeleteProfileImage(c.Request.Context(), user.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile image deleted"})
}

func DeleteOwnAccount(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if err := userService.DeleteAccount(c.Request.Context(), user.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}

func parseIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		c.Abort()
		return 0, err
	}
	return id, nil
}

func readUploadedFile(c *gin.Context) ([]byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return nil, false
	}
	if fileHeader.Size > maxProfileImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is too large"})
		return nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return content, true
}
