package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CourseHubBack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB migrates the database at DB_URL and empties the chat tables.
// Tests are skipped when DB_URL is not set.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		t.Skip("DB_URL not set; skipping repository integration test")
	}

	migrationsPath, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	m, err := migrate.New("file://"+migrationsPath, dbURL)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}
	_, _ = m.Close()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE notifications, course_messages, lesson_progress, courses, users`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO courses (id, title) VALUES ('C101', 'Intro to Go')`)
	require.NoError(t, err)
	return pool
}

func TestMessageRepositoryOrdering(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	repo := NewMessageRepository(pool)

	for _, text := range []string{"first", "second", "third"} {
		_, err := repo.Create(ctx, CreateMessageInput{CourseID: "C101", SenderID: "A", SenderName: "Alice", Text: text})
		require.NoError(t, err)
	}

	history, err := repo.ListByCourse(ctx, "C101")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Text)
	assert.Less(t, history[0].Seq, history[2].Seq)

	recent, err := repo.ListRecent(ctx, "C101", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Text)

	_, err = repo.Create(ctx, CreateMessageInput{CourseID: "C101", SenderID: "A", SenderName: "Alice", Text: "   "})
	assert.Error(t, err, "blank text is rejected by the table constraint")

	_, err = repo.Create(ctx, CreateMessageInput{CourseID: "missing", SenderID: "A", SenderName: "Alice", Text: "hi"})
	assert.Error(t, err)
}

func TestNotificationRepositoryInbox(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	messages := NewMessageRepository(pool)
	repo := NewNotificationRepository(pool)

	message, err := messages.Create(ctx, CreateMessageInput{CourseID: "C101", SenderID: "A", SenderName: "Alice", Text: "question"})
	require.NoError(t, err)

	admin, err := repo.Create(ctx, CreateNotificationInput{
		CourseID:            "C101",
		CourseName:          "Intro to Go",
		UserID:              "A",
		UserName:            "Alice",
		MessageID:           message.ID,
		MessageText:         message.Text,
		Type:                models.NotificationTypeMessage,
		IsAdminNotification: true,
	})
	require.NoError(t, err)

	target := "A"
	reply, err := repo.Create(ctx, CreateNotificationInput{
		CourseID:     "C101",
		CourseName:   "Intro to Go",
		UserID:       "A",
		UserName:     "Prof",
		MessageID:    message.ID,
		MessageText:  "answer",
		Type:         models.NotificationTypeInstructorReply,
		TargetUserID: &target,
	})
	require.NoError(t, err)

	adminInbox, err := repo.ListInbox(ctx, models.Viewer{ID: "I", IsInstructor: true})
	require.NoError(t, err)
	require.Len(t, adminInbox, 1)
	assert.Equal(t, admin.ID, adminInbox[0].ID)

	userInbox, err := repo.ListInbox(ctx, models.Viewer{ID: "A"})
	require.NoError(t, err)
	require.Len(t, userInbox, 1)
	assert.Equal(t, reply.ID, userInbox[0].ID)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, reply.ID, all[0].ID, "newest first")

	updated, err := repo.SetRead(ctx, reply.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Read)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	changed, err := repo.MarkAllRead(ctx, models.Viewer{ID: "I", IsInstructor: true})
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, admin.ID, changed[0].ID)
}

func TestProgressRepositoryMarkWatched(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	repo := NewProgressRepository(pool)

	_, err := repo.Get(ctx, "A", "C101")
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	_, err = repo.MarkWatched(ctx, "A", "C101", 1)
	require.NoError(t, err)
	progress, err := repo.MarkWatched(ctx, "A", "C101", 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, progress.WatchedLessons)

	progress, err = repo.MarkWatched(ctx, "A", "C101", 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, progress.WatchedLessons)
	require.NotNil(t, progress.LastWatched)
	assert.Equal(t, 4, *progress.LastWatched)

	progress, err = repo.MarkWatched(ctx, "A", "C101", 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, progress.WatchedLessons)
	require.NotNil(t, progress.LastWatched)
	assert.Equal(t, 1, *progress.LastWatched)
}

func TestUserAndCourseRepositories(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO users (id, email, full_name, is_admin) VALUES ('I', 'prof@example.com', 'Prof X', TRUE)`)
	require.NoError(t, err)

	user, err := NewUserRepository(pool).GetByID(ctx, "I")
	require.NoError(t, err)
	require.NotNil(t, user.IsAdmin)
	assert.True(t, *user.IsAdmin)
	assert.Equal(t, "Prof X", user.DisplayName("User"))

	course, err := NewCourseRepository(pool).GetByID(ctx, "C101")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", course.Title)

	_, err = NewCourseRepository(pool).GetByID(ctx, "nope")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestIsQueryUnsupported(t *testing.T) {
	assert.False(t, IsQueryUnsupported(errors.New("boom")))
	assert.False(t, IsQueryUnsupported(pgx.ErrNoRows))
	assert.False(t, IsQueryUnsupported(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsQueryUnsupported(fmt.Errorf("list inbox: %w", &pgconn.PgError{Code: "42P10"})))
	assert.True(t, IsQueryUnsupported(&pgconn.PgError{Code: "0A000"}))
	assert.False(t, IsQueryUnsupported(&pgconn.PgError{Code: "42P01"}))
	assert.False(t, IsQueryUnsupported(&pgconn.PgError{Code: "42703"}))
}
