package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"linkcore/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 表示短码不存在
	ErrNotFound = errors.New("链接不存在")
	// ErrCodeTaken 表示短码已被占用
	ErrCodeTaken = errors.New("短码已被占用")
)

// Stats 全局统计信息
type Stats struct {
	TotalLinks  int64 `json:"total_links"`
	TotalClicks int64 `json:"total_clicks"`
}

// LinkStore 负责 Link 记录的持久化
// 唯一性和计数的原子性都下推到数据库，进程内不加锁，
// 多实例部署时正确性同样成立
type LinkStore struct {
	db *gorm.DB
}

// NewLinkStore 创建存储实例
func NewLinkStore(db *gorm.DB) *LinkStore {
	return &LinkStore{db: db}
}

// InsertIfAbsent 原子创建一条 Link，短码已存在时返回 ErrCodeTaken
// 依赖 code 列的唯一索引，而不是先查再插（并发下有竞态窗口）
func (s *LinkStore) InsertIfAbsent(ctx context.Context, code, url string) (*model.Link, error) {
	link := model.Link{Code: code, URL: url}
	if err := s.db.WithContext(ctx).Create(&link).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrCodeTaken
		}
		return nil, err
	}
	return &link, nil
}

// Get 按短码查询单条 Link
func (s *LinkStore) Get(ctx context.Context, code string) (*model.Link, error) {
	var link model.Link
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// List 返回所有 Link，按创建时间倒序
func (s *LinkStore) List(ctx context.Context) ([]model.Link, error) {
	var links []model.Link
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// Delete 按短码删除，不存在时返回 ErrNotFound
func (s *LinkStore) Delete(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).Where("code = ?", code).Delete(&model.Link{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordVisit 原子地将点击数加一并刷新最后点击时间
// 计数更新是单条 UPDATE，并发访问同一短码不会丢失计数
func (s *LinkStore) RecordVisit(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).Model(&model.Link{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"clicks":       gorm.Expr("clicks + 1"),
			"last_clicked": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetStats 汇总链接总数与点击总数
func (s *LinkStore) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := s.db.WithContext(ctx).Model(&model.Link{}).Count(&stats.TotalLinks).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&model.Link{}).
		Select("COALESCE(SUM(clicks), 0)").Scan(&stats.TotalClicks).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// isDuplicateKeyError 判断是否为唯一约束冲突
// MySQL 报 Duplicate entry (1062)，sqlite 报 UNIQUE constraint failed
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
