package services

import (
	"fmt"
	"wishlist/config"
)

func mediaRoot() string {
	if config.AppConfig != nil && config.AppConfig.Media.Root != "" {
		return config.AppConfig.Media.Root
	}
	return "media"
}

// UserDeepLink строит диплинк на профиль для пушей и инвайтов
func UserDeepLink(userID int64) string {
	frontend := ""
	if config.AppConfig != nil {
		frontend = config.AppConfig.FrontendURL
	}
	return fmt.Sprintf("%s/user?userId=%d#", frontend, userID)
}
