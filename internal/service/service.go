package service

import (
	"context"
	"errors"
	"net/url"

	"linkcore/internal/model"
	"linkcore/internal/shortcode"
	"linkcore/internal/store"

	"go.uber.org/zap"
)

const (
	// MaxAttempts 是自动生成短码的总尝试上限，超出后放弃创建
	MaxAttempts = 20
	// EscalateAfter 次连续冲突后切换到加长短码
	EscalateAfter = 10
)

var (
	// ErrInvalidURL 表示目标 URL 不是合法的绝对地址
	ErrInvalidURL = errors.New("无效的 URL")
	// ErrInvalidCode 表示自定义短码格式不合法
	ErrInvalidCode = errors.New("短码必须是 6-8 位字母或数字")
	// ErrCapacityExhausted 表示短码生成重试次数耗尽
	ErrCapacityExhausted = errors.New("短码生成重试次数耗尽")
)

// Store 是 LinkService 依赖的存储接口，由 store.LinkStore 实现
type Store interface {
	InsertIfAbsent(ctx context.Context, code, url string) (*model.Link, error)
	Get(ctx context.Context, code string) (*model.Link, error)
	List(ctx context.Context) ([]model.Link, error)
	Delete(ctx context.Context, code string) error
	RecordVisit(ctx context.Context, code string) error
	GetStats(ctx context.Context) (*store.Stats, error)
}

// LinkService 承载短链接的管理与解析逻辑
type LinkService struct {
	store  Store
	logger *zap.SugaredLogger
}

// NewLinkService 创建服务实例
func NewLinkService(s Store, logger *zap.SugaredLogger) *LinkService {
	return &LinkService{store: s, logger: logger.Named("link_service")}
}

// Create 创建一条短链接
// 给定自定义短码时只尝试一次插入，冲突直接失败；
// 未给定时走生成-插入的有界重试
func (s *LinkService) Create(ctx context.Context, rawURL, customCode string) (*model.Link, error) {
	if !isValidURL(rawURL) {
		return nil, ErrInvalidURL
	}

	if customCode != "" {
		if !shortcode.IsValid(customCode) {
			return nil, ErrInvalidCode
		}
		return s.store.InsertIfAbsent(ctx, customCode, rawURL)
	}

	return s.createWithGeneratedCode(ctx, rawURL)
}

// createWithGeneratedCode 生成短码并插入，冲突时换码重试
// 唯一性靠插入时的唯一约束保证；连续冲突超过 EscalateAfter 次后
// 改用加长短码压低冲突概率，总次数到达 MaxAttempts 仍失败则放弃
func (s *LinkService) createWithGeneratedCode(ctx context.Context, rawURL string) (*model.Link, error) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		length := shortcode.DefaultLength
		if attempt > EscalateAfter {
			length = shortcode.ExtendedLength
		}

		code, err := shortcode.Generate(length)
		if err != nil {
			return nil, err
		}

		link, err := s.store.InsertIfAbsent(ctx, code, rawURL)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, store.ErrCodeTaken) {
			return nil, err
		}
		s.logger.Warnf("短码 %s 冲突，已尝试 %d 次", code, attempt)
	}

	s.logger.Errorf("已尝试 %d 次生成短码，全部冲突，放弃创建", MaxAttempts)
	return nil, ErrCapacityExhausted
}

// Get 按短码查询单条 Link
func (s *LinkService) Get(ctx context.Context, code string) (*model.Link, error) {
	return s.store.Get(ctx, code)
}

// List 返回所有 Link，按创建时间倒序
func (s *LinkService) List(ctx context.Context) ([]model.Link, error) {
	return s.store.List(ctx)
}

// Delete 按短码删除
func (s *LinkService) Delete(ctx context.Context, code string) error {
	return s.store.Delete(ctx, code)
}

// Resolve 解析短码并同步记录一次访问，返回跳转目标
// 计数先落库再返回，客户端中途断开也不会丢计数
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.store.Get(ctx, code)
	if err != nil {
		return "", err
	}
	if err := s.store.RecordVisit(ctx, code); err != nil {
		return "", err
	}
	return link.URL, nil
}

// RecordVisit 单独记录一次访问，供缓存命中的跳转路径使用
func (s *LinkService) RecordVisit(ctx context.Context, code string) error {
	return s.store.RecordVisit(ctx, code)
}

// GetStats 汇总统计
func (s *LinkService) GetStats(ctx context.Context) (*store.Stats, error) {
	return s.store.GetStats(ctx)
}

// isValidURL 要求完整的绝对地址（含 scheme 和 host）
func isValidURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
