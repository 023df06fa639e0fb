package handlers

import "wishlist/services"

var (
	authService   *services.AuthService
	userService   *services.UserService
	wishService   *services.WishService
	followService *services.FollowService
)

// Init связывает хендлеры с сервисами. Вызывается один раз на старте
// (и в тестах, с подмененными клиентами провайдеров).
func Init(auth *services.AuthService, users *services.UserService, wishes *services.WishService, follows *services.FollowService) {
	authService = auth
	userService = users
	wishService = wishes
	followService = follows
}
