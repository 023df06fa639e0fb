package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"wishlist/models"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	vkAPIVersion = "5.191"
	vkAPIBase    = "https://api.vk.com/method/"
)

// VkUserBasicData - поля, доступные в VK API по access_token
type VkUserBasicData struct {
	ID        string
	FirstName string
	LastName  string
	PhotoURL  string
	Gender    *models.Gender
	BirthDate *time.Time
}

func (d VkUserBasicData) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// VkUserExtraData - поля, которые нельзя запросить по access_token.
// Доступны только в момент аутентификации.
type VkUserExtraData struct {
	Email *string
	Phone *string
}

// VKAPI - контракт VK Social API
type VKAPI interface {
	ExchangeSilentToken(ctx context.Context, silentToken, uuid string) (string, VkUserExtraData, error)
	UserData(ctx context.Context, accessToken string) (*VkUserBasicData, error)
	Friends(ctx context.Context, accessToken string) ([]byte, error)
}

type VKClient struct {
	serviceKey string
	httpClient *http.Client
}

func NewVKClient(serviceKey string) *VKClient {
	return &VKClient{
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func vkGender(sex int64) *models.Gender {
	var g models.Gender
	switch sex {
	case 1:
		g = models.FEMALE
	case 2:
		g = models.MALE
	default:
		return nil
	}
	return &g
}

// ExchangeSilentToken меняет silent-токен из веб-виджета на access_token.
// Ошибка VK трактуется как отказ аутентификации.
func (c *VKClient) ExchangeSilentToken(ctx context.Context, silentToken, uuid string) (string, VkUserExtraData, error) {
	params := url.Values{
		"v":            {vkAPIVersion},
		"token":        {silentToken},
		"access_token": {c.serviceKey},
		"uuid":         {uuid},
	}
	body, err := c.post(ctx, "auth.exchangeSilentAuthToken", params)
	if err != nil {
		return "", VkUserExtraData{}, err
	}

	if gjson.GetBytes(body, "error").Exists() {
		log.Printf("VK auth error: %s", gjson.GetBytes(body, "error").Raw)
		return "", VkUserExtraData{}, fmt.Errorf("%w: vk token exchange rejected", models.ErrUnauthenticated)
	}

	response := gjson.GetBytes(body, "response")
	accessToken := response.Get("access_token").String()
	if accessToken == "" {
		return "", VkUserExtraData{}, fmt.Errorf("%w: vk returned no access token", models.ErrUnauthenticated)
	}

	extra := VkUserExtraData{}
	if email := response.Get("email").String(); email != "" {
		extra.Email = &email
	}
	if phone := response.Get("phone").String(); phone != "" {
		extra.Phone = &phone
	}
	return accessToken, extra, nil
}

// UserData запрашивает профиль владельца access_token
func (c *VKClient) UserData(ctx context.Context, accessToken string) (*VkUserBasicData, error) {
	params := url.Values{
		"v":            {vkAPIVersion},
		"access_token": {accessToken},
		"fields":       {"photo_200, sex, bdate"},
	}
	body, err := c.get(ctx, "users.get", params)
	if err != nil {
		return nil, err
	}

	if gjson.GetBytes(body, "error").Exists() {
		return nil, fmt.Errorf("%w: vk users.get rejected", models.ErrUnauthenticated)
	}
	userData := gjson.GetBytes(body, "response.0")
	if !userData.Exists() {
		return nil, fmt.Errorf("%w: vk returned no user", models.ErrUnauthenticated)
	}

	data := &VkUserBasicData{
		ID:        strconv.FormatInt(userData.Get("id").Int(), 10),
		FirstName: userData.Get("first_name").String(),
		LastName:  userData.Get("last_name").String(),
		PhotoURL:  userData.Get("photo_200").String(),
		Gender:    vkGender(userData.Get("sex").Int()),
	}
	// bdate может отсутствовать или быть без года ("21.3")
	if bdate := userData.Get("bdate").String(); bdate != "" {
		if parsed, err := time.Parse("2.1.2006", bdate); err == nil {
			data.BirthDate = &parsed
		}
	}
	return data, nil
}

// Friends возвращает сырой JSON списка друзей для кэширования у пользователя
func (c *VKClient) Friends(ctx context.Context, accessToken string) ([]byte, error) {
	params := url.Values{
		"v":            {vkAPIVersion},
		"access_token": {accessToken},
		"order":        {"hints"},
		// любое поле, чтобы возвращались объекты, а не id-шники
		"fields": {"bdate"},
	}
	body, err := c.get(ctx, "friends.get", params)
	if err != nil {
		return nil, err
	}
	items := gjson.GetBytes(body, "response.items")
	if !items.Exists() {
		return nil, fmt.Errorf("vk friends.get returned no items")
	}
	return []byte(items.Raw), nil
}

func (c *VKClient) get(ctx context.Context, method string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, vkAPIBase+method+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *VKClient) post(ctx context.Context, method string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, vkAPIBase+method, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *VKClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vk api request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("vk api responded %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

var _ VKAPI = (*VKClient)(nil)
