// Package storage archives raw webhook deliveries to object storage.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storeops/backend/internal/domain/payment"
)

// sensitiveHeaders are dropped before a delivery is written anywhere
var sensitiveHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization"}

// archivedDelivery is the JSON document stored per delivery
type archivedDelivery struct {
	Provider   string      `json:"provider"`
	ReceivedAt time.Time   `json:"received_at"`
	RemoteAddr string      `json:"remote_addr,omitempty"`
	Header     http.Header `json:"header,omitempty"`
	Form       url.Values  `json:"form,omitempty"`
	Body       string      `json:"body,omitempty"`
}

func encodeDelivery(provider string, receivedAt time.Time, req *payment.WebhookRequest) ([]byte, error) {
	header := req.Header.Clone()
	for _, h := range sensitiveHeaders {
		header.Del(h)
	}
	return json.Marshal(archivedDelivery{
		Provider:   provider,
		ReceivedAt: receivedAt.UTC(),
		RemoteAddr: req.RemoteAddr,
		Header:     header,
		Form:       req.Form,
		Body:       string(req.Body),
	})
}

// ObjectKey builds <prefix>/<provider>/<yyyy>/<mm>/<dd>/<unix-nanos>-<id>.json
func ObjectKey(prefix, provider string, receivedAt time.Time) string {
	t := receivedAt.UTC()
	name := fmt.Sprintf("%d-%s.json", t.UnixNano(), uuid.NewString())
	return path.Join(strings.Trim(prefix, "/"), provider, t.Format("2006/01/02"), name)
}

// NoopArchive discards deliveries
type NoopArchive struct{}

// Archive implements payment.PayloadArchive
func (NoopArchive) Archive(ctx context.Context, provider string, receivedAt time.Time, req *payment.WebhookRequest) (string, error) {
	return "", nil
}

var _ payment.PayloadArchive = NoopArchive{}

// MemoryArchive keeps deliveries in process, for development and tests
type MemoryArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	prefix  string
}

// NewMemoryArchive creates an empty in-memory archive
func NewMemoryArchive(prefix string) *MemoryArchive {
	return &MemoryArchive{objects: make(map[string][]byte), prefix: prefix}
}

// Archive implements payment.PayloadArchive
func (a *MemoryArchive) Archive(ctx context.Context, provider string, receivedAt time.Time, req *payment.WebhookRequest) (string, error) {
	data, err := encodeDelivery(provider, receivedAt, req)
	if err != nil {
		return "", fmt.Errorf("encode delivery: %w", err)
	}
	key := ObjectKey(a.prefix, provider, receivedAt)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = data
	return key, nil
}

// Get returns a stored object
func (a *MemoryArchive) Get(key string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.objects[key]
	return data, ok
}

// Len returns the number of stored objects
func (a *MemoryArchive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.objects)
}

var _ payment.PayloadArchive = (*MemoryArchive)(nil)
