package service

import (
	"context"
	"strings"
	"time"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/repository"
)

type FeedMode string

const (
	FeedForYou    FeedMode = "for_you"
	FeedFollowing FeedMode = "following"
)

// Window 热门榜的时间窗口
type Window string

const (
	WindowToday   Window = "today"
	WindowWeek    Window = "week"
	WindowMonth   Window = "month"
	WindowAllTime Window = "all_time"
)

func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case WindowToday, WindowWeek, WindowMonth, WindowAllTime:
		return w, nil
	case "":
		return WindowAllTime, nil
	default:
		return "", apperr.Validation("unknown window %q", s)
	}
}

// since 返回窗口起点，all_time 返回零值
func (w Window) since(now time.Time) time.Time {
	switch w {
	case WindowToday:
		return now.Add(-24 * time.Hour)
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, 0, -30)
	default:
		return time.Time{}
	}
}

type FeedQuery struct {
	UserID   string
	Mode     FeedMode
	Category string
	Limit    int
	Offset   int
}

type FeedService interface {
	// GetFeed following 模式下关注集合为空时返回空列表
	GetFeed(ctx context.Context, q FeedQuery) ([]*model.Idea, error)
	// Popular 按点赞数降序，同票按发布时间降序
	Popular(ctx context.Context, window Window, category string, limit int) ([]*model.Idea, error)
	// Search 任一关键词命中标题、正文、分类或作者名即返回，不区分大小写
	Search(ctx context.Context, text string, limit int) ([]*model.Idea, error)
}

type feedService struct {
	store        *repository.Store
	relations    RelationshipService
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

func NewFeedService(store *repository.Store, relations RelationshipService, defaultLimit, maxLimit int) FeedService {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &feedService{
		store:        store,
		relations:    relations,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *feedService) GetFeed(ctx context.Context, q FeedQuery) ([]*model.Idea, error) {
	query := repository.NewQuery().Eq("category", strings.TrimSpace(q.Category))

	switch q.Mode {
	case FeedForYou, "":
	case FeedFollowing:
		if blank(q.UserID) {
			return nil, apperr.Validation("user is required for the following feed")
		}
		ids, err := s.relations.FollowingIDs(ctx, q.UserID)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []*model.Idea{}, nil
		}
		query = query.In("author_id", ids)
	default:
		return nil, apperr.Validation("unknown feed mode %q", q.Mode)
	}

	query = query.
		OrderBy("created_at", true).
		OrderBy("id", true).
		Limit(clampLimit(q.Limit, s.defaultLimit, s.maxLimit)).
		Offset(q.Offset)
	ideas, err := s.store.Ideas.Find(ctx, query)
	if err != nil {
		return nil, apperr.Remote("load feed", err)
	}
	return ideas, nil
}

func (s *feedService) Popular(ctx context.Context, window Window, category string, limit int) ([]*model.Idea, error) {
	if _, err := ParseWindow(string(window)); err != nil {
		return nil, err
	}
	query := repository.NewQuery().Eq("category", strings.TrimSpace(category))
	if since := window.since(s.now()); !since.IsZero() {
		query = query.AnySince(since, "created_at", "updated_at")
	}
	query = query.
		OrderBy("like_count", true).
		OrderBy("created_at", true).
		OrderBy("id", true).
		Limit(clampLimit(limit, s.defaultLimit, s.maxLimit))
	ideas, err := s.store.Ideas.Find(ctx, query)
	if err != nil {
		return nil, apperr.Remote("load popular ideas", err)
	}
	return ideas, nil
}

func (s *feedService) Search(ctx context.Context, text string, limit int) ([]*model.Idea, error) {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return []*model.Idea{}, nil
	}
	query := repository.NewQuery().
		Like(terms, "title", "body", "category", "author_name").
		OrderBy("created_at", true).
		OrderBy("id", true).
		Limit(clampLimit(limit, s.defaultLimit, s.maxLimit))
	ideas, err := s.store.Ideas.Find(ctx, query)
	if err != nil {
		return nil, apperr.Remote("search ideas", err)
	}
	return ideas, nil
}
