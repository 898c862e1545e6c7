package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/payment"
	"github.com/storeops/backend/internal/infrastructure/config"
)

func testDelivery() *payment.WebhookRequest {
	return &payment.WebhookRequest{
		Body:       []byte("payment_status=COMPLETE&amount_gross=150.00"),
		Form:       url.Values{"payment_status": {"COMPLETE"}, "amount_gross": {"150.00"}},
		Header:     http.Header{"Content-Type": {"application/x-www-form-urlencoded"}, "Authorization": {"Bearer x"}},
		RemoteAddr: "197.97.145.144",
	}
}

func TestNewS3Archive_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{"nil config", nil, "configuration is required"},
		{"missing bucket", &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, "bucket is required"},
		{"missing access key", &config.StorageConfig{Bucket: "b", SecretKey: "s"}, "access key is required"},
		{"missing secret key", &config.StorageConfig{Bucket: "b", AccessKey: "k"}, "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Archive(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid config", func(t *testing.T) {
		a, err := NewS3Archive(&config.StorageConfig{
			Bucket: "webhooks", AccessKey: "k", SecretKey: "s", Endpoint: "localhost:9000",
		})
		require.NoError(t, err)
		assert.Equal(t, "webhooks", a.Bucket())
	})
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 3, 7, 9, 30, 0, 0, time.UTC)
	key := ObjectKey("/webhooks/", "payfast", at)

	assert.True(t, strings.HasPrefix(key, "webhooks/payfast/2026/03/07/"), key)
	assert.True(t, strings.HasSuffix(key, ".json"))
	assert.NotEqual(t, key, ObjectKey("webhooks", "payfast", at), "keys are unique per delivery")
}

func TestMemoryArchive_DropsCredentials(t *testing.T) {
	a := NewMemoryArchive("webhooks")
	at := time.Date(2026, 3, 7, 9, 30, 0, 0, time.UTC)

	key, err := a.Archive(context.Background(), "payfast", at, testDelivery())
	require.NoError(t, err)

	data, ok := a.Get(key)
	require.True(t, ok)

	var doc archivedDelivery
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "payfast", doc.Provider)
	assert.Equal(t, "COMPLETE", doc.Form.Get("payment_status"))
	assert.Empty(t, doc.Header.Get("Authorization"))
	assert.Equal(t, "application/x-www-form-urlencoded", doc.Header.Get("Content-Type"))
	assert.Equal(t, 1, a.Len())
}

func TestS3Archive_Archive(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path = r.Method, r.URL.Path
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := NewS3Archive(&config.StorageConfig{
		Bucket:       "webhooks",
		AccessKey:    "k",
		SecretKey:    "s",
		Endpoint:     srv.URL,
		UsePathStyle: true,
		Prefix:       "deliveries",
	}, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	key, err := a.Archive(context.Background(), "stripe", time.Now(), testDelivery())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/webhooks/"+key, path)
	assert.True(t, strings.HasPrefix(key, "deliveries/stripe/"))
}

func TestNewArchive_DisabledIsNoop(t *testing.T) {
	a, err := NewArchive(context.Background(), &config.StorageConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, NoopArchive{}, a)

	key, err := a.Archive(context.Background(), "payfast", time.Now(), testDelivery())
	assert.NoError(t, err)
	assert.Empty(t, key)
}
