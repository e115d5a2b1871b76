package plaid

import (
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/angelmondragon/plaidbridge/pkg/errors"
)

// WebhookVerificationHeader carries the signed JWT on every webhook Plaid sends.
const WebhookVerificationHeader = "Plaid-Verification"

const (
	defaultWebhookMaxAge = 5 * time.Minute
	defaultKeyRefresh    = 10 * time.Minute
)

type WebhookVerificationKey struct {
	Alg       string `json:"alg"`
	Crv       string `json:"crv"`
	Kid       string `json:"kid" validate:"required"`
	Kty       string `json:"kty"`
	Use       string `json:"use"`
	X         string `json:"x"`
	Y         string `json:"y"`
	CreatedAt int64  `json:"created_at"`
	ExpiredAt *int64 `json:"expired_at"`
}

type getWebhookVerificationKeyRequest struct {
	Credentials
	KeyID string `json:"key_id"`
}

type GetWebhookVerificationKeyResponse struct {
	ResponseMeta
	Key WebhookVerificationKey `json:"key"`
}

// GetWebhookVerificationKey fetches the public JWK identified by keyID.
func (c *Client) GetWebhookVerificationKey(ctx context.Context, keyID string) (*GetWebhookVerificationKeyResponse, error) {
	if c == nil {
		return nil, errClientRequired
	}
	return Send[getWebhookVerificationKeyRequest, GetWebhookVerificationKeyResponse](ctx, c, "webhook_verification_key/get", getWebhookVerificationKeyRequest{
		Credentials: c.credentials,
		KeyID:       keyID,
	})
}

type verificationKeyFetcher interface {
	GetWebhookVerificationKey(ctx context.Context, keyID string) (*GetWebhookVerificationKeyResponse, error)
}

// WebhookVerifier checks the Plaid-Verification JWT of incoming webhooks.
// Keys are cached by kid and re-fetched once older than keyRefresh, so a key
// Plaid has since expired stops verifying.
type WebhookVerifier struct {
	keys       verificationKeyFetcher
	maxAge     time.Duration
	keyRefresh time.Duration
	now        func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedKey
}

type cachedKey struct {
	pub       *ecdsa.PublicKey
	fetchedAt time.Time
}

func NewWebhookVerifier(client *Client) *WebhookVerifier {
	return newWebhookVerifier(client, time.Now)
}

func newWebhookVerifier(keys verificationKeyFetcher, now func() time.Time) *WebhookVerifier {
	return &WebhookVerifier{
		keys:       keys,
		maxAge:     defaultWebhookMaxAge,
		keyRefresh: defaultKeyRefresh,
		now:        now,
		cache:      map[string]cachedKey{},
	}
}

type webhookClaims struct {
	RequestBodySHA256 string `json:"request_body_sha256"`
	jwt.RegisteredClaims
}

// Verify validates signedJWT and checks that it was issued for body.
func (v *WebhookVerifier) Verify(ctx context.Context, signedJWT string, body []byte) error {
	signedJWT = strings.TrimSpace(signedJWT)
	if signedJWT == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing webhook verification token")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)

	var claims webhookClaims
	_, err := parser.ParseWithClaims(signedJWT, &claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header is missing kid")
		}
		return v.key(ctx, kid)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid webhook verification token")
	}

	if claims.IssuedAt == nil || v.now().Sub(claims.IssuedAt.Time) > v.maxAge {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook verification token is too old")
	}

	sum := sha256.Sum256(body)
	expected := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(claims.RequestBodySHA256))) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook body does not match signature")
	}
	return nil
}

func (v *WebhookVerifier) key(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	v.mu.RLock()
	cached, ok := v.cache[kid]
	v.mu.RUnlock()
	if ok && v.now().Sub(cached.fetchedAt) < v.keyRefresh {
		return cached.pub, nil
	}

	resp, err := v.keys.GetWebhookVerificationKey(ctx, kid)
	if err != nil {
		return nil, err
	}
	if resp.Key.ExpiredAt != nil {
		v.mu.Lock()
		delete(v.cache, kid)
		v.mu.Unlock()
		return nil, fmt.Errorf("verification key %s has expired", kid)
	}
	pub, err := resp.Key.PublicKey()
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.cache[kid] = cachedKey{pub: pub, fetchedAt: v.now()}
	v.mu.Unlock()
	return pub, nil
}

// PublicKey decodes the JWK into a P-256 public key.
func (k WebhookVerificationKey) PublicKey() (*ecdsa.PublicKey, error) {
	if k.Kty != "EC" || k.Crv != "P-256" {
		return nil, fmt.Errorf("unsupported verification key type %s/%s", k.Kty, k.Crv)
	}
	xb, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("decode key x: %w", err)
	}
	yb, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("decode key y: %w", err)
	}
	if len(xb) != 32 || len(yb) != 32 {
		return nil, errors.New("verification key coordinates must be 32 bytes")
	}

	point := append([]byte{0x04}, append(xb, yb...)...)
	if _, err := ecdh.P256().NewPublicKey(point); err != nil {
		return nil, fmt.Errorf("verification key is not on P-256: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xb),
		Y:     new(big.Int).SetBytes(yb),
	}, nil
}
