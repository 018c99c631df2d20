package entity

// Re-export common types from the common package for backward compatibility.

import (
	"fitlook/internal/entity/common"

	"github.com/google/uuid"
)

// Type aliases for common types
type StringArray = common.StringArray
type Meta = common.Meta
type BaseParams = common.BaseParams

// NewID 生成实体主键（UUID v4 字符串）。
func NewID() string {
	return uuid.NewString()
}
