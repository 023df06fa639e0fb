package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ogPage = `<!DOCTYPE html>
<html>
<head>
<meta property="og:title" content="Кофемашина DeLonghi" />
<meta property="og:description" content="Автоматическая кофемашина" />
<meta property="og:image" content="https://cdn.example.com/item.jpg" />
</head>
<body>item page</body>
</html>`

func TestParseOpenGraphPage(t *testing.T) {
	info, err := parseOpenGraphPage(ogPage)
	require.NoError(t, err)
	assert.Equal(t, "Кофемашина DeLonghi", info.Title)
	assert.Equal(t, "Автоматическая кофемашина", info.Description)
	assert.Equal(t, "https://cdn.example.com/item.jpg", info.ImageURL)
}

func TestParseOpenGraphPageWithoutTags(t *testing.T) {
	_, err := parseOpenGraphPage("<html><head><title>plain</title></head></html>")
	assert.ErrorIs(t, err, ErrItemInfoParse)
}

func TestParseItemByLinkWithClientHTML(t *testing.T) {
	info, err := ParseItemByLink(context.Background(), "https://shop.example.com/item/1", ogPage)
	require.NoError(t, err)
	assert.Equal(t, "Кофемашина DeLonghi", info.Title)
}

func TestParseItemByLinkFetchesPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ogPage))
	}))
	defer server.Close()

	info, err := ParseItemByLink(context.Background(), server.URL+"/item", "")
	require.NoError(t, err)
	assert.Equal(t, "Кофемашина DeLonghi", info.Title)
}

func TestParseItemByLinkBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := ParseItemByLink(context.Background(), server.URL+"/item", "")
	assert.ErrorIs(t, err, ErrItemInfoParse)
}

const yaMarketPage = `<html><script>window.__apiary.deferredMetaGenerator([` +
	`{"tagName":"meta","attrs":{"property":"og:title","content":"Ноутбук"}},` +
	`{"tagName":"meta","attrs":{"property":"og:image","content":"https://market.example/img.png"}},` +
	`{"tagName":"meta","attrs":{"property":"og:description","content":"Игровой"}},` +
	`{"tagName":"link","attrs":{"rel":"canonical"}}]);</script></html>`

func TestParseYaMarketPage(t *testing.T) {
	info, err := parseYaMarketPage(yaMarketPage)
	require.NoError(t, err)
	assert.Equal(t, "Ноутбук", info.Title)
	assert.Equal(t, "Игровой", info.Description)
	assert.Equal(t, "https://market.example/img.png", info.ImageURL)
}

// Короткая /cc/ ссылка: редиректы упираются в каптчу, но повторный запрос
// конечного URL отдает нормальную страницу.
func TestYaMarketShortLinkRefetch(t *testing.T) {
	var productHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/cc/abc", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/product--laptop/1", http.StatusFound)
	})
	mux.HandleFunc("/product--laptop/1", func(w http.ResponseWriter, r *http.Request) {
		productHits++
		if productHits == 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(yaMarketPage))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	resolved, err := resolveYaMarketShortLink(context.Background(), server.URL+"/cc/abc")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/product--laptop/1", resolved)

	body, err := fetchPage(context.Background(), resolved)
	require.NoError(t, err)
	info, err := parseYaMarketPage(body)
	require.NoError(t, err)
	assert.Equal(t, "Ноутбук", info.Title)
}

func TestParseYaMarketPageWithoutMeta(t *testing.T) {
	_, err := parseYaMarketPage("<html><body>captcha</body></html>")
	assert.ErrorIs(t, err, ErrItemInfoParse)
}

func TestWbBasketNumber(t *testing.T) {
	cases := map[int64]string{
		5000000:   "01", // vol 50
		20000000:  "02", // vol 200
		100000000: "04", // vol 1000
		150000000: "10", // vol 1500
		250000000: "15", // vol 2500
	}
	for itemID, want := range cases {
		assert.Equal(t, want, wbBasketNumber(itemID), "item %d", itemID)
	}
}

func TestWildberriesLinkWithoutCatalogID(t *testing.T) {
	_, err := ParseItemByLink(context.Background(), "https://www.wildberries.ru/brands/something", "")
	assert.ErrorIs(t, err, ErrItemInfoParse)
}
