// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/domain/repository"
)

// GenerateDeckRequest 生成请求；可选字段为空时由内容生成阶段取默认值
type GenerateDeckRequest struct {
	Idea        string `json:"idea" binding:"required,max=4000"`
	Customer    string `json:"customer,omitempty" binding:"max=500"`
	Region      string `json:"region,omitempty" binding:"max=200"`
	Constraints string `json:"constraints,omitempty" binding:"max=2000"`
}

// ToEntity 转换为领域请求
func (r *GenerateDeckRequest) ToEntity() entity.DeckRequest {
	return entity.DeckRequest{
		Idea:        r.Idea,
		Customer:    r.Customer,
		Region:      r.Region,
		Constraints: r.Constraints,
	}
}

// PageRequest 分页请求参数
type PageRequest struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Pagination 转换为仓储分页参数
func (r PageRequest) Pagination() repository.Pagination {
	return repository.NewPagination(r.Page, r.PageSize)
}

// BindPage 从 Gin Context 绑定分页参数
func BindPage(c *gin.Context) PageRequest {
	p := repository.NewPagination(
		parseIntWithDefault(c.Query("page"), 1),
		parseIntWithDefault(c.Query("page_size"), 20),
	)
	return PageRequest{Page: p.Page, PageSize: p.PageSize}
}

// parseIntWithDefault 解析整数，失败时返回默认值
func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// BindJobID 从 URI 绑定任务 ID
func BindJobID(c *gin.Context) string {
	return c.Param("id")
}
