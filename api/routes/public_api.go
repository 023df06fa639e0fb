package routes

import (
	"wishlist/api/handlers"
	"wishlist/api/middleware"
	"wishlist/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func PublicApi(router *gin.Engine, verifier services.FirebaseAuth) *gin.RouterGroup {
	publicEndpoints := router.Group("/api/v1/")
	{
		publicEndpoints.POST("auth/vk/web", handlers.AuthVKWeb)
		publicEndpoints.POST("auth/vk/mobile", handlers.AuthVKMobile)
		publicEndpoints.POST("auth/firebase", handlers.AuthFirebase)
		publicEndpoints.GET("admin/queue/stats", handlers.QueueStats)
	}

	privateEndpoints := router.Group("/api/v1/")
	privateEndpoints.Use(middleware.AuthMiddleware(verifier))
	{
		privateEndpoints.POST("save_push_token", handlers.SavePushToken)

		// Профиль
		privateEndpoints.GET("users/me", handlers.CurrentUserGet)
		privateEndpoints.PUT("users/me", handlers.CurrentUserUpdate)
		privateEndpoints.POST("set_profile_image", handlers.SetProfileImage)
		privateEndpoints.POST("delete_profile_image", handlers.DeleteProfileImage)
		privateEndpoints.POST("delete_own_account", handlers.DeleteOwnAccount)
		privateEndpoints.GET("invite_link", handlers.InviteLink)

		// Другие пользователи
		privateEndpoints.GET("users/search", handlers.UserSearch)
		privateEndpoints.GET("users/get/:id", handlers.UserGet)
		privateEndpoints.GET("users/get/:id/followers", handlers.UserFollowers)
		privateEndpoints.GET("users/get/:id/follows", handlers.UserFollows)
		privateEndpoints.GET("users/get/:id/wishes", handlers.UserWishList)
		privateEndpoints.GET("possible_friends", handlers.PossibleFriends)

		// Подписки
		privateEndpoints.POST("follow/:id", handlers.Follow)
		privateEndpoints.POST("unfollow/:id", handlers.Unfollow)

		// Хотелки
		privateEndpoints.POST("wishes", handlers.WishCreate)
		privateEndpoints.GET("wishes", handlers.WishList)
		privateEndpoints.GET("archived_wishes", handlers.ArchivedWishList)
		privateEndpoints.GET("reserved_wishes", handlers.ReservedWishList)
		privateEndpoints.GET("wishes/:id", handlers.WishGet)
		privateEndpoints.PUT("wishes/:id", handlers.WishUpdate)
		privateEndpoints.DELETE("wishes/:id", handlers.WishDelete)
		privateEndpoints.POST("wishes/:id/archive", handlers.WishArchive)
		privateEndpoints.POST("wishes/:id/unarchive", handlers.WishUnarchive)
		privateEndpoints.POST("wishes/:id/image", handlers.WishSetImage)
		privateEndpoints.DELETE("wishes/:id/image", handlers.WishDeleteImage)
		privateEndpoints.POST("wishes/:id/reserve", handlers.WishReserve)
		privateEndpoints.POST("wishes/:id/cancel_reservation", handlers.WishCancelReservation)

		// Превью товара по ссылке
		privateEndpoints.POST("item_info_from_page", handlers.ItemInfoFromPage)

		// Живые события
		privateEndpoints.GET("ws", handlers.WSHandler)
	}

	return privateEndpoints
}

// SystemApi - служебные endpoint'ы вне версионированного API
func SystemApi(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
