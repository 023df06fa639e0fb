package services

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
	"wishlist/models"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2/google"
)

const (
	// Сертификаты, которыми Google подписывает firebase id-токены
	securetokenCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken%40system.gserviceaccount.com"
	identitytoolkitURL  = "https://identitytoolkit.googleapis.com/v1/projects/%s/accounts%s"
	customTokenAudience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"
	identityScope       = "https://www.googleapis.com/auth/identitytoolkit"
)

type FirebaseUserRecord struct {
	UID           string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string
	Phone         string
}

// FirebaseAuth - контракт внешнего провайдера идентичности.
// Любая ошибка провайдера - это отказ аутентификации, а не падение сервиса.
type FirebaseAuth interface {
	VerifyIDToken(ctx context.Context, idToken string) (string, error)
	CustomToken(uid string) (string, error)
	CreateUser(ctx context.Context, email, displayName, photoURL, phone string) (string, error)
	GetUser(ctx context.Context, uid string) (*FirebaseUserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
}

// FirebaseClient - клиент admin-плоскости firebase поверх REST.
// Конструируется явно и передается зависимостям, без глобального состояния.
type FirebaseClient struct {
	projectID    string
	clientEmail  string
	privateKey   *rsa.PrivateKey
	privateKeyID string
	httpClient   *http.Client

	certsMu      sync.Mutex
	certs        map[string]*rsa.PublicKey
	certsFetched time.Time
}

func NewFirebaseClient(ctx context.Context, keyPath, projectID string) (*FirebaseClient, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read firebase key: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(keyData, identityScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse firebase key: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(conf.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse firebase private key: %w", err)
	}

	return &FirebaseClient{
		projectID:    projectID,
		clientEmail:  conf.Email,
		privateKey:   privateKey,
		privateKeyID: conf.PrivateKeyID,
		httpClient:   conf.Client(ctx),
		certs:        make(map[string]*rsa.PublicKey),
	}, nil
}

// VerifyIDToken проверяет подпись и claims id-токена, возвращает firebase uid
func (c *FirebaseClient) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	token, err := jwt.Parse(idToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		return c.publicKey(ctx, kid)
	},
		jwt.WithAudience(c.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+c.projectID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: token has no subject", models.ErrUnauthenticated)
	}
	return sub, nil
}

func (c *FirebaseClient) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.certsMu.Lock()
	defer c.certsMu.Unlock()

	if key, ok := c.certs[kid]; ok && time.Since(c.certsFetched) < time.Hour {
		return key, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, securetokenCertsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch securetoken certs: %w", err)
	}
	defer resp.Body.Close()

	var pemCerts map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&pemCerts); err != nil {
		return nil, fmt.Errorf("failed to decode securetoken certs: %w", err)
	}

	certs := make(map[string]*rsa.PublicKey, len(pemCerts))
	for id, certPEM := range pemCerts {
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			continue
		}
		if rsaKey, ok := cert.PublicKey.(*rsa.PublicKey); ok {
			certs[id] = rsaKey
		}
	}
	c.certs = certs
	c.certsFetched = time.Now()

	key, ok := c.certs[kid]
	if !ok {
		return nil, fmt.Errorf("no cert for kid %q", kid)
	}
	return key, nil
}

// CustomToken выписывает кастомный firebase-токен для uid.
// Клиент обменивает его на обычную сессию через signInWithCustomToken.
func (c *FirebaseClient) CustomToken(uid string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": c.clientEmail,
		"sub": c.clientEmail,
		"aud": customTokenAudience,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
		"uid": uid,
	})
	token.Header["kid"] = c.privateKeyID
	return token.SignedString(c.privateKey)
}

func (c *FirebaseClient) CreateUser(ctx context.Context, email, displayName, photoURL, phone string) (string, error) {
	payload := map[string]interface{}{
		"displayName":   displayName,
		"emailVerified": false,
	}
	if email != "" {
		payload["email"] = email
	}
	if photoURL != "" {
		payload["photoUrl"] = photoURL
	}
	if phone != "" {
		payload["phoneNumber"] = phone
	}

	body, err := c.call(ctx, "", payload)
	if err != nil {
		return "", err
	}
	uid := gjson.GetBytes(body, "localId").String()
	if uid == "" {
		return "", fmt.Errorf("identitytoolkit returned no localId")
	}
	return uid, nil
}

func (c *FirebaseClient) GetUser(ctx context.Context, uid string) (*FirebaseUserRecord, error) {
	body, err := c.call(ctx, ":lookup", map[string]interface{}{"localId": []string{uid}})
	if err != nil {
		return nil, err
	}
	record := gjson.GetBytes(body, "users.0")
	if !record.Exists() {
		return nil, fmt.Errorf("%w: firebase user %s", models.ErrNotFound, uid)
	}
	return &FirebaseUserRecord{
		UID:           record.Get("localId").String(),
		Email:         record.Get("email").String(),
		EmailVerified: record.Get("emailVerified").Bool(),
		DisplayName:   record.Get("displayName").String(),
		PhotoURL:      record.Get("photoUrl").String(),
		Phone:         record.Get("phoneNumber").String(),
	}, nil
}

func (c *FirebaseClient) DeleteUser(ctx context.Context, uid string) error {
	_, err := c.call(ctx, ":delete", map[string]interface{}{"localId": uid})
	return err
}

func (c *FirebaseClient) call(ctx context.Context, action string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf(identitytoolkitURL, c.projectID, action)

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identitytoolkit request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		message := gjson.GetBytes(body, "error.message").String()
		log.Printf("identitytoolkit error %d: %s", resp.StatusCode, message)
		switch message {
		case "EMAIL_EXISTS", "DUPLICATE_EMAIL", "PHONE_NUMBER_EXISTS":
			return nil, fmt.Errorf("%w: %s", models.ErrConflict, message)
		}
		return nil, fmt.Errorf("identitytoolkit responded %d: %s", resp.StatusCode, message)
	}
	return body, nil
}

var _ FirebaseAuth = (*FirebaseClient)(nil)
