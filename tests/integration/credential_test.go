package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/backend/internal/domain/accounting"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/persistence"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
)

func newCredential(t *testing.T, access string) *accounting.OAuthCredential {
	t.Helper()
	cred, err := accounting.NewOAuthCredential("xero", &accounting.TokenResponse{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		TokenType:    "Bearer",
		ExpiresIn:    30 * time.Minute,
	}, time.Now().UTC())
	require.NoError(t, err)
	return cred
}

func TestCredentialRepository_Integration(t *testing.T) {
	testDB := NewTestDB(t)
	repo := persistence.NewGormCredentialRepository(testDB.DB)
	ctx := context.Background()

	t.Run("partial index rejects a second active row", func(t *testing.T) {
		require.NoError(t, repo.ReplaceActive(ctx, newCredential(t, "first")))

		err := testDB.DB.Create(models.OAuthCredentialModelFromDomain(newCredential(t, "second"))).Error
		assert.Error(t, err, "ux_oauth_credentials_one_active")

		n, err := repo.CountActive(ctx, "xero")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("concurrent replacements leave one active credential", func(t *testing.T) {
		const writers = 4
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		start := make(chan struct{})
		for i := 0; i < writers; i++ {
			cred := newCredential(t, fmt.Sprintf("concurrent-%d", i))
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if err := repo.ReplaceActive(ctx, cred); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.GreaterOrEqual(t, wins, 1)
		n, err := repo.CountActive(ctx, "xero")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("refresh of a replaced credential conflicts", func(t *testing.T) {
		old := newCredential(t, "old")
		require.NoError(t, repo.ReplaceActive(ctx, old))
		require.NoError(t, repo.ReplaceActive(ctx, newCredential(t, "new")))

		require.NoError(t, old.ApplyRefresh(&accounting.TokenResponse{
			AccessToken: "old-refreshed",
			ExpiresIn:   30 * time.Minute,
		}, time.Now().UTC()))
		assert.ErrorIs(t, repo.SaveRefreshed(ctx, old), shared.ErrConcurrencyConflict)

		active, err := repo.FindActive(ctx, "xero")
		require.NoError(t, err)
		assert.Equal(t, "new", active.AccessToken)
	})

	t.Run("history keeps deactivated rows", func(t *testing.T) {
		history, err := repo.History(ctx, "xero", 100)
		require.NoError(t, err)
		assert.Greater(t, len(history), 1)

		active := 0
		for _, c := range history {
			if c.IsActive {
				active++
			}
		}
		assert.Equal(t, 1, active)
	})
}
