package model

import (
	"time"
)

// Link 短链接模型
// code 一经创建不可变更，唯一性由数据库唯一索引保证
type Link struct {
	ID          uint       `gorm:"primarykey" json:"-"`
	Code        string     `gorm:"size:10;uniqueIndex;not null" json:"code"`
	URL         string     `gorm:"type:text;not null" json:"url"`
	Clicks      int64      `gorm:"default:0" json:"clicks"`
	LastClicked *time.Time `json:"lastClicked"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
}

// TableName 指定表名
func (Link) TableName() string {
	return "links"
}
