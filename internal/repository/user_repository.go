package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/ideagraph/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.User, error)
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id string, fields map[string]any) error
	// AdjustFollowCounts 原子调整 follower 的关注数和 followee 的粉丝数
	AdjustFollowCounts(ctx context.Context, followerID, followeeID string, delta int64) error
	SetFollowCounts(ctx context.Context, id string, followers, following int64) error
	// ListIDs 按 id 升序返回 afterID 之后的一页用户 id
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	return duplicate(r.db.WithContext(ctx).Create(u).Error, "username or email is already registered")
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err, "user", email)
	}
	return &u, nil
}

// GetByIDs 按 ids 顺序返回，不存在的 id 被跳过
func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	var users []*model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	res := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			res = append(res, u)
		}
	}
	return res, nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	var cnt int64
	q := r.db.WithContext(ctx).Model(&model.User{}).Where("username = ?", username)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&cnt).Error
	return cnt > 0, err
}

func (r *userRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&cnt).Error
	return cnt > 0, err
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, fields map[string]any) error {
	fields["version"] = gorm.Expr("version + 1")
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return duplicate(res.Error, "username is already taken")
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "user", id)
	}
	return nil
}

func (r *userRepository) AdjustFollowCounts(ctx context.Context, followerID, followeeID string, delta int64) error {
	db := r.db.WithContext(ctx).Model(&model.User{})
	if err := db.Where("id = ?", followerID).UpdateColumns(map[string]any{
		"following_count": counterExpr("following_count", delta),
		"version":         gorm.Expr("version + 1"),
	}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", followeeID).UpdateColumns(map[string]any{
		"followers_count": counterExpr("followers_count", delta),
		"version":         gorm.Expr("version + 1"),
	}).Error
}

func (r *userRepository) SetFollowCounts(ctx context.Context, id string, followers, following int64) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"followers_count": followers,
		"following_count": following,
		"version":         gorm.Expr("version + 1"),
	}).Error
}

func (r *userRepository) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
