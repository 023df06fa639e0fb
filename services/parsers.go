package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

// ErrItemInfoParse - не удалось извлечь превью из страницы
var ErrItemInfoParse = errors.New("item info parse failed")

type ItemInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

var (
	yaMarketMetaRe = regexp.MustCompile(`window\.__apiary\.deferredMetaGenerator\((.*?)\);`)
	wbCatalogRe    = regexp.MustCompile(`catalog/(\d+)`)
)

var parserHTTPClient = &http.Client{Timeout: 10 * time.Second}

const parserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// ParseItemByLink собирает превью товара по ссылке. Для Яндекс.Маркета и
// Wildberries используются их внутренние форматы, для остальных сайтов
// стандартные OpenGraph-теги. html - готовая страница от клиента,
// если он уже загрузил ее сам (обход антиботов на его стороне).
func ParseItemByLink(ctx context.Context, link string, pageHTML string) (*ItemInfo, error) {
	log.Printf("Parsing item preview for %s, has html: %v", link, pageHTML != "")

	if strings.Contains(link, "market.yandex.ru") {
		if strings.Contains(link, "/cc/") {
			resolved, err := resolveYaMarketShortLink(ctx, link)
			if err != nil {
				return nil, err
			}
			link = resolved
		}
		body, err := fetchPage(ctx, link)
		if err != nil {
			return nil, err
		}
		return parseYaMarketPage(body)
	}

	if strings.Contains(link, "wildberries.ru") {
		return parseWildberriesItem(ctx, link)
	}

	if pageHTML == "" {
		body, err := fetchPage(ctx, link)
		if err != nil {
			return nil, err
		}
		pageHTML = body
	}
	return parseOpenGraphPage(pageHTML)
}

func fetchPage(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", parserUserAgent)
	resp, err := parserHTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: response status %d", ErrItemInfoParse, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// resolveYaMarketShortLink раскрывает короткую /cc/ ссылку до канонического
// URL товара. Цепочка редиректов заканчивается каптчей, поэтому статус
// последнего ответа не важен: повторный запрос того же URL уже отдает
// нормальную страницу.
func resolveYaMarketShortLink(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", parserUserAgent)
	resp, err := parserHTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Request.URL.String(), nil
}

// parseYaMarketPage вытаскивает OG-атрибуты из встроенной переменной
// с метаданными страницы
func parseYaMarketPage(pageHTML string) (*ItemInfo, error) {
	match := yaMarketMetaRe.FindStringSubmatch(pageHTML)
	if match == nil {
		return nil, fmt.Errorf("%w: meta generator variable not found", ErrItemInfoParse)
	}

	attrs := make(map[string]string)
	for _, item := range gjson.Parse(match[1]).Array() {
		if item.Get("tagName").String() != "meta" {
			continue
		}
		property := item.Get("attrs.property").String()
		if strings.HasPrefix(property, "og:") {
			attrs[property] = item.Get("attrs.content").String()
		}
	}
	if attrs["og:title"] == "" || attrs["og:image"] == "" {
		return nil, fmt.Errorf("%w: og tags missing in meta data", ErrItemInfoParse)
	}
	return &ItemInfo{
		Title:       attrs["og:title"],
		Description: attrs["og:description"],
		ImageURL:    attrs["og:image"],
	}, nil
}

// wbBasketNumber - номер basket-хоста по диапазону артикула.
// Взято из исходников js-файла на сайте.
func wbBasketNumber(itemID int64) string {
	vol := itemID / 100000
	switch {
	case vol <= 143:
		return "01"
	case vol <= 287:
		return "02"
	case vol <= 431:
		return "03"
	case vol <= 719:
		return "04"
	case vol <= 1007:
		return "05"
	case vol <= 1061:
		return "06"
	case vol <= 1115:
		return "07"
	case vol <= 1169:
		return "08"
	case vol <= 1313:
		return "09"
	case vol <= 1601:
		return "10"
	case vol <= 1655:
		return "11"
	case vol <= 1919:
		return "12"
	case vol <= 2045:
		return "13"
	case vol <= 2189:
		return "14"
	default:
		return "15"
	}
}

func parseWildberriesItem(ctx context.Context, link string) (*ItemInfo, error) {
	match := wbCatalogRe.FindStringSubmatch(link)
	if match == nil {
		return nil, fmt.Errorf("%w: catalog/ pattern not found in URL", ErrItemInfoParse)
	}
	itemID, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad item id %q", ErrItemInfoParse, match[1])
	}

	baseURL := fmt.Sprintf("https://basket-%s.wbbasket.ru/vol%d/part%d/%d",
		wbBasketNumber(itemID), itemID/100000, itemID/1000, itemID)
	body, err := fetchPage(ctx, baseURL+"/info/ru/card.json")
	if err != nil {
		return nil, err
	}

	card := gjson.Parse(body)
	title := card.Get("imt_name").String()
	if title == "" {
		return nil, fmt.Errorf("%w: imt_name missing in card data", ErrItemInfoParse)
	}
	return &ItemInfo{
		Title:       title,
		Description: card.Get("description").String(),
		ImageURL:    baseURL + "/images/big/1.webp",
	}, nil
}

// parseOpenGraphPage читает og:title, og:description и og:image из head
func parseOpenGraphPage(pageHTML string) (*ItemInfo, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrItemInfoParse, err)
	}

	attrs := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "property":
					property = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if strings.HasPrefix(property, "og:") {
				if _, exists := attrs[property]; !exists {
					attrs[property] = content
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if attrs["og:title"] == "" || attrs["og:image"] == "" {
		return nil, fmt.Errorf("%w: og meta tags not found", ErrItemInfoParse)
	}
	return &ItemInfo{
		Title:       attrs["og:title"],
		Description: attrs["og:description"],
		ImageURL:    attrs["og:image"],
	}, nil
}
