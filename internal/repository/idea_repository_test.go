package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/testutil"
)

func seedIdea(t *testing.T, s *Store, id, author, category string, created time.Time, likes int64) {
	t.Helper()
	require.NoError(t, s.Ideas.Create(context.Background(), &model.Idea{
		ID: id, Title: "title " + id, Body: "body " + id, Category: category,
		AuthorID: author, AuthorName: author, LikeCount: likes,
		CreatedAt: created, UpdatedAt: created,
	}))
}

func ideaIDs(ideas []*model.Idea) []string {
	ids := make([]string, len(ideas))
	for i, idea := range ideas {
		ids[i] = idea.ID
	}
	return ids
}

func TestQueryToSQL(t *testing.T) {
	q := NewQuery().
		Eq("category", "Art").
		In("author_id", []string{"u1", "u2"}).
		OrderBy("created_at", true).
		OrderBy("id", true).
		Limit(10).Offset(20)
	sql, args, err := q.ToSQL("ideas", ideaQueryFields)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM ideas WHERE category = ? AND author_id IN (?,?) ORDER BY created_at DESC, id DESC LIMIT 10 OFFSET 20", sql)
	assert.Equal(t, []any{"Art", "u1", "u2"}, args)
}

func TestQuerySkipsEmptyEqAndRejectsUnknownField(t *testing.T) {
	sql, args, err := NewQuery().Eq("category", "").ToSQL("ideas", ideaQueryFields)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM ideas", sql)
	assert.Empty(t, args)

	_, _, err = NewQuery().OrderBy("password_hash", false).ToSQL("ideas", ideaQueryFields)
	assert.Error(t, err)
}

func TestQueryLikeEscapesWildcards(t *testing.T) {
	sql, args, err := NewQuery().Like([]string{"50%_Off\\"}, "title").ToSQL("ideas", ideaQueryFields)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM ideas WHERE (LOWER(title) LIKE ? ESCAPE '\')`, sql)
	assert.Equal(t, []any{`%50\%\_off\\%`}, args)
}

func TestQueryAnySince(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sql, args, err := NewQuery().AnySince(since, "created_at", "updated_at").ToSQL("ideas", ideaQueryFields)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM ideas WHERE (created_at >= ? OR updated_at >= ?)", sql)
	assert.Equal(t, []any{since, since}, args)
}

// postgres 方言下占位符被改写为 $n
func TestIdeaFindPostgresPlaceholders(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM ideas WHERE category = \$1 ORDER BY like_count DESC LIMIT 5`).
		WithArgs("Health").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "category", "like_count"}).
			AddRow("i1", "clean water", "Health", 3))

	ideas, err := NewIdeaRepository(db).Find(context.Background(),
		NewQuery().Eq("category", "Health").OrderBy("like_count", true).Limit(5))
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, "i1", ideas[0].ID)
	assert.Equal(t, int64(3), ideas[0].LikeCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdeaFindOrdering(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	seedIdea(t, s, "a", "u1", "Art", base, 0)
	seedIdea(t, s, "b", "u2", "Art", base.Add(time.Minute), 0)
	seedIdea(t, s, "c", "u1", "Health", base.Add(2*time.Minute), 0)

	ideas, err := s.Ideas.Find(ctx, NewQuery().OrderBy("created_at", true).OrderBy("id", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ideaIDs(ideas))

	ideas, err = s.Ideas.Find(ctx, NewQuery().Eq("category", "Art").OrderBy("created_at", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ideaIDs(ideas))

	ideas, err = s.Ideas.Find(ctx, NewQuery().In("author_id", []string{}).OrderBy("created_at", true))
	require.NoError(t, err)
	assert.Empty(t, ideas)
}

func TestIdeaAdjustCounterKeepsUpdatedAt(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	created := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)
	seedIdea(t, s, "i1", "u1", "Art", created, 0)

	require.NoError(t, s.Ideas.AdjustCounter(ctx, "i1", IdeaLikes, 1))
	require.NoError(t, s.Ideas.AdjustCounter(ctx, "i1", IdeaComments, -1))

	idea, err := s.Ideas.GetByID(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), idea.LikeCount)
	assert.Equal(t, int64(0), idea.CommentCount)
	assert.True(t, idea.UpdatedAt.Equal(created))
	assert.Equal(t, int64(3), idea.Version)

	assert.Error(t, s.Ideas.AdjustCounter(ctx, "i1", IdeaCounter("title"), 1))
}

func TestIdeaGetByIDsPreservesOrder(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	now := time.Now().UTC()
	seedIdea(t, s, "i1", "u1", "Art", now, 0)
	seedIdea(t, s, "i2", "u1", "Art", now, 0)

	ideas, err := s.Ideas.GetByIDs(context.Background(), []string{"i2", "gone", "i1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i2", "i1"}, ideaIDs(ideas))
}

func TestCategoryAdjustCreatesUnknown(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	require.NoError(t, s.Categories.Adjust(ctx, "Music", 1))
	require.NoError(t, s.Categories.Adjust(ctx, "Art", 1))
	require.NoError(t, s.Categories.Adjust(ctx, "Art", -2))

	cats, err := s.Categories.List(ctx)
	require.NoError(t, err)
	counts := map[string]int64{}
	for _, c := range cats {
		counts[c.Name] = c.IdeaCount
	}
	assert.Equal(t, int64(1), counts["Music"])
	assert.Equal(t, int64(0), counts["Art"])
	assert.Len(t, cats, len(model.DefaultCategories)+1)
}

func TestViewRecordFirstOnly(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	t0 := time.Now().UTC()

	first, err := s.Views.Record(ctx, "u1", "i1", t0)
	require.NoError(t, err)
	assert.True(t, first)
	first, err = s.Views.Record(ctx, "u1", "i1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, first)

	n, err := s.Views.CountByIdea(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLikeToggleEdges(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	created, err := s.Likes.Create(ctx, "u1", model.LikeTargetIdea, "i1")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.Likes.Create(ctx, "u1", model.LikeTargetIdea, "i1")
	require.NoError(t, err)
	assert.False(t, created)

	// 同 id 的评论点赞是独立的边
	created, err = s.Likes.Create(ctx, "u1", model.LikeTargetComment, "i1")
	require.NoError(t, err)
	assert.True(t, created)

	n, err := s.Likes.Count(ctx, model.LikeTargetIdea, "i1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Likes.DeleteByTargets(ctx, model.LikeTargetComment, []string{"i1"}))
	ids, err := s.Likes.TargetIDs(ctx, "u1", model.LikeTargetComment)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNotificationReceiverScope(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	n := &model.Notification{Type: model.NotificationLike, SenderID: "u1", ReceiverID: "u2", Message: "liked"}
	require.NoError(t, s.Notifications.Create(ctx, n))

	err := s.Notifications.MarkRead(ctx, "u3", n.ID)
	require.Error(t, err)

	require.NoError(t, s.Notifications.MarkRead(ctx, "u2", n.ID))
	cnt, err := s.Notifications.CountUnread(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cnt)

	assert.Error(t, s.Notifications.Delete(ctx, "u3", n.ID))
	require.NoError(t, s.Notifications.Delete(ctx, "u2", n.ID))
}

func TestOutboxClaim(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	require.NoError(t, s.Outbox.Create(ctx, "i1", "u1"))
	require.NoError(t, s.Outbox.Create(ctx, "i2", "u1"))

	batch, err := s.Outbox.Claim(ctx, 10, time.Hour)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	again, err := s.Outbox.Claim(ctx, 10, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, s.Outbox.MarkDone(ctx, batch[0].ID, 3))
	pending, err := s.Outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
}

func TestOutboxLeaseAndRelease(t *testing.T) {
	s := NewStore(testutil.NewDB(t))
	ctx := context.Background()
	require.NoError(t, s.Outbox.Create(ctx, "i1", "u1"))

	batch, err := s.Outbox.Claim(ctx, 10, time.Hour)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	again, err := s.Outbox.Claim(ctx, 10, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, again)

	time.Sleep(10 * time.Millisecond)
	again, err = s.Outbox.Claim(ctx, 10, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, 1, again[0].Attempts)

	require.NoError(t, s.Outbox.Release(ctx, again[0].ID))
	pending, err := s.Outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	again, err = s.Outbox.Claim(ctx, 10, time.Hour)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, 2, again[0].Attempts)
	require.NoError(t, s.Outbox.MarkDone(ctx, again[0].ID, 0))

	time.Sleep(10 * time.Millisecond)
	again, err = s.Outbox.Claim(ctx, 10, time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestOutboxClaimSQLOnPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, idea_id, author_id, created_at, status, attempts FROM outbox WHERE status = \$1 OR \(status = \$2 AND claimed_at < \$3\) ORDER BY created_at LIMIT \$4 FOR UPDATE SKIP LOCKED`).
		WithArgs(model.OutboxPending, model.OutboxProcessing, sqlmock.AnyArg(), 8).
		WillReturnRows(sqlmock.NewRows([]string{"id", "idea_id", "author_id", "status", "attempts"}).
			AddRow("o1", "i1", "u1", model.OutboxProcessing, 2))
	mock.ExpectExec(`UPDATE "outbox" SET .*"status"=\$\d+ WHERE id IN \(\$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch, err := NewOutboxRepository(db).Claim(context.Background(), 8, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "i1", batch[0].IdeaID)
	assert.Equal(t, 2, batch[0].Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
