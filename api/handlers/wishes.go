package handlers

import (
	"errors"
	"net/http"
	"wishlist/api/middleware"
	"wishlist/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type WishRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Link        *string `json:"link"`
	Price       *int64  `json:"price"`
}

type ItemInfoRequest struct {
	Link string `json:"link" binding:"required"`
	HTML string `json:"html"`
}

func (r WishRequest) toInput() services.WishInput {
	return services.WishInput{
		Name:        r.Name,
		Description: r.Description,
		Link:        r.Link,
		Price:       r.Price,
	}
}

func WishCreate(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req WishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	wish, err := wishService.Create(c.Request.Context(), user.ID, req.toInput())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"wish": wish})
}

// WishList - активные хотелки текущего пользователя
func WishList(c *gin.Context) {
	user := middleware.CurrentUser(c)

	wishes, err := wishService.ListMine(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishes": wishes})
}

func ArchivedWishList(c *gin.Context) {
	user := middleware.CurrentUser(c)

	wishes, err := wishService.ListArchived(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishes": wishes})
}

// ReservedWishList - чужие хотелки, зарезервированные текущим пользователем
func ReservedWishList(c *gin.Context) {
	user := middleware.CurrentUser(c)

	wishes, err := wishService.ListReservedBy(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishes": wishes})
}

// UserWishList - активные хотелки другого пользователя
func UserWishList(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	wishes, err := wishService.ListForUser(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishes": wishes})
}

func WishGet(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	wish, err := wishService.GetForViewer(c.Request.Context(), id, user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wish": wish})
}

func WishUpdate(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	var req WishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := wishService.Update(c.Request.Context(), id, user.ID, req.toInput()); err != nil {
		abortWithError(c, err)
		return
	}

	wish, err := wishService.GetForViewer(c.Request.Context(), id, user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wish": wish})
}

func WishDelete(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := wishService.Delete(c.Request.Context(), id, user.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wish deleted"})
}

func WishArchive(c *gin.Context) {
	setWishArchived(c, true)
}

func WishUnarchive(c *gin.Context) {
	setWishArchived(c, false)
}

func setWishArchived(c *gin.Context, archived bool) {
	user := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := wishService.SetArchived(c.Request.Context(), id, user.ID, archived); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wish updated"})
}

func WishSetImage(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	content, ok := readUploadedFile(c)
	if !ok {
		return
	}

	if err := wishService.SetImage(c.Request.Context(), id, user.ID, content); err != nil {
		abortWithError(c, err)
		return
	}

	wish, err := wishService.GetForViewer(c.Request.Context(), id, user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wish": wish})
}

func WishDeleteImage(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := wishService.RemoveImage(c.Request.Context(), id, user.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}

func WishReserve(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := wishService.Reserve(c.Request.Context(), id, user.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wish reserved"})
}

func WishCancelReservation(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id, err := parseIDParam(c)
	if err != nil {
		return
	}

	if err := wishService.CancelReservation(c.Request.Context(), id, user.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reservation cancelled"})
}

// ItemInfoFromPage собирает превью товара по ссылке. Если клиент
// прислал html и разбор не удался, страница перезапрашивается сервером.
func ItemInfoFromPage(c *gin.Context) {
	var req ItemInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	info, err := services.ParseItemByLink(c.Request.Context(), req.Link, req.HTML)
	if err != nil && req.HTML != "" && errors.Is(err, services.ErrItemInfoParse) {
		log.Printf("Refetching html server-side for preview: %s", req.Link)
		info, err = services.ParseItemByLink(c.Request.Context(), req.Link, "")
	}
	if err != nil {
		log.Printf("Item preview failed for %s: %v", req.Link, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to fetch item info"})
		return
	}
	c.JSON(http.StatusOK, info)
}
