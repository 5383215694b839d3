package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticClient(baseURL string) *Client {
	return &Client{
		httpClient: http.DefaultClient,
		baseURL:    baseURL,
		tokenSource: &tokenSource{
			fetch: func(context.Context) (string, time.Time, error) {
				return "test-token", time.Now().Add(time.Hour), nil
			},
		},
	}
}

func TestParseObjectURI(t *testing.T) {
	bucket, object, err := ParseObjectURI("gs://crm-config/rules/segments.yaml")
	require.NoError(t, err)
	assert.Equal(t, "crm-config", bucket)
	assert.Equal(t, "rules/segments.yaml", object)

	for _, bad := range []string{"rules.yaml", "gs://", "gs://bucket", "gs://bucket/", "gs:///object"} {
		_, _, err := ParseObjectURI(bad)
		assert.Error(t, err, bad)
	}

	assert.True(t, IsObjectURI(" gs://b/o"))
	assert.False(t, IsObjectURI("/etc/rules.yaml"))
}

func TestReadURIFetchesMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		assert.Equal(t, "/b/crm-config/o/rules/segments.yaml", r.URL.Path)
		_, _ = w.Write([]byte("rules: []\n"))
	}))
	defer srv.Close()

	body, err := staticClient(srv.URL).ReadURI(context.Background(), "gs://crm-config/rules/segments.yaml")
	require.NoError(t, err)
	assert.Equal(t, "rules: []\n", string(body))
}

func TestReadObjectSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "No such object", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := staticClient(srv.URL).ReadObject(context.Background(), "crm-config", "missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "No such object")
}

func TestReadObjectRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", maxObjectBytes+10)))
	}))
	defer srv.Close()

	_, err := staticClient(srv.URL).ReadObject(context.Background(), "b", "big.yaml")
	require.ErrorContains(t, err, "exceeds")
}

func TestTokenSourceCachesUntilNearExpiry(t *testing.T) {
	calls := 0
	ts := &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
		calls++
		return "tok", time.Now().Add(time.Hour), nil
	}}

	for i := 0; i < 3; i++ {
		tok, err := ts.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok", tok)
	}
	assert.Equal(t, 1, calls)
}

func TestSignJWTVerifies(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	sig, err := signJWT("header.payload", key)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sig)
	require.NoError(t, err)
	hash := sha256.Sum256([]byte("header.payload"))
	require.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, hash[:], raw))
}

func TestParsePrivateKeyFormats(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	_, err = parsePrivateKey(string(pkcs1))
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pkcs8 := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	_, err = parsePrivateKey(string(pkcs8))
	require.NoError(t, err)

	_, err = parsePrivateKey("not a key")
	require.Error(t, err)
}

func TestNewServiceAccountTokenSourceRejectsIncompleteCreds(t *testing.T) {
	_, err := newServiceAccountTokenSource(http.DefaultClient, `{"client_email":"a@b"}`)
	require.Error(t, err)
}
