//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

func setupPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "speakflow",
				"POSTGRES_PASSWORD": "speakflow",
				"POSTGRES_DB":       "speakflow",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://speakflow:speakflow@%s:%s/speakflow?sslmode=disable", host, port.Port())
}

func TestIntegration_PracticeStore(t *testing.T) {
	dsn := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, dsn))
	require.NoError(t, Migrate(ctx, dsn), "second migrate is a no-op")

	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	store := NewPracticeStore(pool)
	userID := uuid.New()

	a, err := domain.UniformAssessment(domain.LevelB2)
	require.NoError(t, err)
	analysis := domain.NewAnalysis(a)
	analysis.Strengths = []string{"varied vocabulary"}
	sess := domain.NewPracticeSession(userID, domain.KindPractice, domain.TopicBusiness, domain.LevelB2, analysis)

	require.NoError(t, store.SaveSession(ctx, sess))

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelB2, got.OverallLevel())
	assert.Equal(t, []string{"varied vocabulary"}, got.Analysis.Strengths)

	list, err := store.ListSessions(ctx, userID, domain.SessionFilter{Topic: domain.TopicBusiness, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	for _, want := range []bool{true, true, false} {
		ok, err := store.ReserveSlot(ctx, userID, domain.KindPractice, 2)
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	counts, err := store.Counts(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Practice)
	assert.Equal(t, 0, counts.Assessments)

	require.NoError(t, store.ReleaseSlot(ctx, userID, domain.KindPractice))
	ok, err := store.ReserveSlot(ctx, userID, domain.KindPractice, 2)
	require.NoError(t, err)
	assert.True(t, ok, "released slot is reusable")

	_, err = store.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPracticeSessionNotFound)
}

func TestIntegration_AuthStore(t *testing.T) {
	dsn := setupPostgres(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, dsn))

	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	store := NewAuthStore(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &domain.User{ID: uuid.New(), Email: "ana@example.com", Name: "Ana", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.InsertUser(ctx, u))

	dup := *u
	dup.ID = uuid.New()
	assert.ErrorIs(t, store.InsertUser(ctx, &dup), domain.ErrUserAlreadyExists)

	got, err := store.UserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.Placed())

	_, err = store.UserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	live := &domain.Session{ID: uuid.New(), UserID: u.ID, Token: "live", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	stale := &domain.Session{ID: uuid.New(), UserID: u.ID, Token: "stale", ExpiresAt: now.Add(-time.Hour), CreatedAt: now}
	require.NoError(t, store.InsertSession(ctx, live))
	require.NoError(t, store.InsertSession(ctx, stale))

	require.NoError(t, store.PurgeExpiredSessions(ctx))
	_, err = store.SessionByToken(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrAuthSessionNotFound)

	sess, err := store.SessionByToken(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.UserID)

	require.NoError(t, store.RevokeUserSessions(ctx, u.ID))
	_, err = store.SessionByToken(ctx, "live")
	assert.ErrorIs(t, err, domain.ErrAuthSessionNotFound)
}
