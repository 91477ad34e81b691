package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"linkcore/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupStore 基于内存 sqlite 初始化一个干净的存储
// sqlite 不支持多连接并发写，这里限制为单连接让并发测试在池层串行化
func setupStore(t *testing.T) (*LinkStore, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err, "无法连接到内存数据库")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.Link{}), "数据库迁移失败")

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return NewLinkStore(db), db
}

func TestInsertIfAbsent(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	link, err := s.InsertIfAbsent(ctx, "abc123", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "abc123", link.Code)
	assert.Equal(t, "https://example.com", link.URL)
	assert.EqualValues(t, 0, link.Clicks)
	assert.Nil(t, link.LastClicked)

	// 同一短码第二次插入必须失败，哪怕目标 URL 不同
	_, err = s.InsertIfAbsent(ctx, "abc123", "https://other.com")
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestGet(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "nosuch1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.InsertIfAbsent(ctx, "abc123", "https://example.com")
	require.NoError(t, err)

	link, err := s.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.URL)
	assert.EqualValues(t, 0, link.Clicks)
	assert.Nil(t, link.LastClicked)
}

func TestListNewestFirst(t *testing.T) {
	s, db := setupStore(t)
	ctx := context.Background()

	// 显式指定创建时间，避免同一毫秒内的顺序歧义
	now := time.Now()
	for i, link := range []model.Link{
		{Code: "oldest1", URL: "https://a.com", CreatedAt: now.Add(-2 * time.Hour)},
		{Code: "middle1", URL: "https://b.com", CreatedAt: now.Add(-1 * time.Hour)},
		{Code: "newest1", URL: "https://c.com", CreatedAt: now},
	} {
		require.NoError(t, db.Create(&link).Error, "第 %d 条测试数据写入失败", i)
	}

	links, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "newest1", links[0].Code)
	assert.Equal(t, "middle1", links[1].Code)
	assert.Equal(t, "oldest1", links[2].Code)
}

func TestDelete(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.InsertIfAbsent(ctx, "abc123", "https://example.com")
	require.NoError(t, err)

	assert.NoError(t, s.Delete(ctx, "abc123"))
	assert.ErrorIs(t, s.Delete(ctx, "abc123"), ErrNotFound)

	_, err = s.Get(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordVisit(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.RecordVisit(ctx, "nosuch1"), ErrNotFound)

	_, err := s.InsertIfAbsent(ctx, "abc123", "https://example.com")
	require.NoError(t, err)

	before := time.Now()
	require.NoError(t, s.RecordVisit(ctx, "abc123"))

	link, err := s.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.EqualValues(t, 1, link.Clicks)
	require.NotNil(t, link.LastClicked)
	assert.False(t, link.LastClicked.Before(before.Add(-time.Second)), "最后点击时间应接近当前时间")
}

// TestRecordVisitConcurrent 验证并发计数不丢更新：
// 100 个并发访问结束后点击数必须恰好是 100
func TestRecordVisitConcurrent(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	_, err := s.InsertIfAbsent(ctx, "abc123", "https://example.com")
	require.NoError(t, err)

	const visitors = 100
	errs := make(chan error, visitors)
	var wg sync.WaitGroup
	for i := 0; i < visitors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RecordVisit(ctx, "abc123")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	link, err := s.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.EqualValues(t, visitors, link.Clicks)
}

func TestGetStats(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalLinks)
	assert.EqualValues(t, 0, stats.TotalClicks)

	_, err = s.InsertIfAbsent(ctx, "abc123", "https://a.com")
	require.NoError(t, err)
	_, err = s.InsertIfAbsent(ctx, "def456", "https://b.com")
	require.NoError(t, err)
	require.NoError(t, s.RecordVisit(ctx, "abc123"))
	require.NoError(t, s.RecordVisit(ctx, "abc123"))
	require.NoError(t, s.RecordVisit(ctx, "def456"))

	stats, err = s.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalLinks)
	assert.EqualValues(t, 3, stats.TotalClicks)
}
