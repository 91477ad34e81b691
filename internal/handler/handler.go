package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"linkcore/internal/service"
	"linkcore/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// cacheTTL 是跳转缓存的过期时间，可以考虑将其配置化
const cacheTTL = 24 * time.Hour

// LinkHandler 处理器
type LinkHandler struct {
	links *service.LinkService
	redis *redis.Client
}

// NewLinkHandler 创建处理器实例
func NewLinkHandler(links *service.LinkService, redisClient *redis.Client) *LinkHandler {
	return &LinkHandler{
		links: links,
		redis: redisClient,
	}
}

// HealthCheck 健康检查
func (h *LinkHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

// CreateLinkRequest 创建请求体，code 为可选的自定义短码
type CreateLinkRequest struct {
	URL  string `json:"url" binding:"required"`
	Code string `json:"code"`
}

// CreateLink 创建短链接
// 请求体校验和短码分配都在服务层完成，这里只做错误码映射
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	link, err := h.links.Create(c.Request.Context(), req.URL, req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.redis.Set(ctx, cacheKey(link.Code), link.URL, cacheTTL)
	}

	c.JSON(http.StatusOK, link)
}

// Redirect 短码跳转
// 无论缓存是否命中，访问计数都先同步落库再返回 302
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if cachedURL, err := h.redis.Get(ctx, cacheKey(code)).Result(); err == nil {
			switch err := h.links.RecordVisit(c.Request.Context(), code); {
			case err == nil:
				c.Redirect(http.StatusFound, cachedURL)
			case errors.Is(err, store.ErrNotFound):
				// 缓存里残留了已删除的短码，清掉后按 404 处理
				h.redis.Del(ctx, cacheKey(code))
				c.JSON(http.StatusNotFound, gin.H{"error": "链接不存在"})
			default:
				h.respondError(c, err)
			}
			return
		}
	}

	targetURL, err := h.links.Resolve(c.Request.Context(), code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		h.redis.Set(ctx, cacheKey(code), targetURL, cacheTTL)
	}
	c.Redirect(http.StatusFound, targetURL)
}

// ListLinks 返回所有短链接，按创建时间倒序
func (h *LinkHandler) ListLinks(c *gin.Context) {
	links, err := h.links.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

// GetLink 查询单条短链接
func (h *LinkHandler) GetLink(c *gin.Context) {
	link, err := h.links.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// DeleteLink 删除短链接，同时清理跳转缓存
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	code := c.Param("code")

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.redis.Del(ctx, cacheKey(code))
	}

	if err := h.links.Delete(c.Request.Context(), code); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}

// GetStats 全局统计
func (h *LinkHandler) GetStats(c *gin.Context) {
	stats, err := h.links.GetStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// respondError 把服务层错误映射为 HTTP 状态码，不向客户端泄露内部细节
func (h *LinkHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidURL), errors.Is(err, service.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrCodeTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCapacityExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "短码容量暂时耗尽，请稍后再试"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}

func cacheKey(code string) string {
	return "link:" + code
}
