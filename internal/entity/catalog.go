package entity

import (
	"strings"
	"time"
)

// GarmentCategories 服装分类（固定枚举）
var GarmentCategories = []string{
	"Sherwani",
	"Jodhpuri (Bandhgala)",
	"Suit",
	"Tuxedo",
	"Indo-Western",
	"Kurta Set",
	"Achkan",
	"Bandhgala",
}

// GarmentSizes 可选尺码
var GarmentSizes = []string{"XS", "S", "M", "L", "XL", "XXL", "Custom"}

// IsValidCategory 判断分类是否在固定枚举内（区分大小写）。
func IsValidCategory(category string) bool {
	for _, c := range GarmentCategories {
		if c == category {
			return true
		}
	}
	return false
}

// NormalizeSizes 过滤未知尺码并去重，保留输入顺序。
func NormalizeSizes(sizes []string) StringArray {
	out := make(StringArray, 0, len(sizes))
	seen := make(map[string]struct{}, len(sizes))
	for _, raw := range sizes {
		size := strings.TrimSpace(raw)
		valid := false
		for _, allowed := range GarmentSizes {
			if strings.EqualFold(allowed, size) {
				size = allowed
				valid = true
				break
			}
		}
		if !valid {
			continue
		}
		if _, ok := seen[size]; ok {
			continue
		}
		seen[size] = struct{}{}
		out = append(out, size)
	}
	return out
}

// DbGarment 服装目录条目
type DbGarment struct {
	ID          string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	UserID      string      `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	Name        string      `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Category    string      `gorm:"column:category;type:varchar(64);index;not null" json:"category"`
	ImageURL    string      `gorm:"column:image_url;type:text" json:"image_url"`
	Description string      `gorm:"column:description;type:text" json:"description"`
	SizeOptions StringArray `gorm:"column:size_options;type:json" json:"size_options"`
}

// TableName 指定表名
func (DbGarment) TableName() string {
	return "garments"
}

// DbCustomer 顾客（试穿对象）
type DbCustomer struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	Name      string    `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Phone     string    `gorm:"column:phone;type:varchar(64)" json:"phone"`
	Notes     string    `gorm:"column:notes;type:text" json:"notes"`
	PhotoURL  string    `gorm:"column:photo_url;type:text" json:"photo_url"`
}

// TableName 指定表名
func (DbCustomer) TableName() string {
	return "customers"
}

// GarmentQuery 服装列表查询条件
type GarmentQuery struct {
	UserID   string `form:"-"`
	Category string `form:"category"`
	// Search 按名称或分类模糊匹配，不区分大小写
	Search string `form:"q"`
}

// GarmentUpdates 服装更新字段
type GarmentUpdates struct {
	Name        *string
	Category    *string
	ImageURL    *string
	Description *string
	SizeOptions *StringArray
}

// ToMap 转换为更新 map（内部使用）
func (u GarmentUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Category != nil {
		updates["category"] = *u.Category
	}
	if u.ImageURL != nil {
		updates["image_url"] = *u.ImageURL
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.SizeOptions != nil {
		updates["size_options"] = *u.SizeOptions
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u GarmentUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// CustomerUpdates 顾客更新字段
type CustomerUpdates struct {
	Name     *string
	Phone    *string
	Notes    *string
	PhotoURL *string
}

// ToMap 转换为更新 map（内部使用）
func (u CustomerUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Phone != nil {
		updates["phone"] = *u.Phone
	}
	if u.Notes != nil {
		updates["notes"] = *u.Notes
	}
	if u.PhotoURL != nil {
		updates["photo_url"] = *u.PhotoURL
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u CustomerUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

type GarmentRequest struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	ImageURL    *string  `json:"image_url"`
	Description *string  `json:"description"`
	SizeOptions []string `json:"size_options"`
}

type CustomerRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Notes    *string `json:"notes"`
	PhotoURL *string `json:"photo_url"`
}
