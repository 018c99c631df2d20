package entity

import "time"

// DbTryonHistory 一次成功试穿生成的持久化记录，创建后不再修改。
type DbTryonHistory struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UserID         string    `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	CustomerID     string    `gorm:"column:customer_id;type:varchar(36);index" json:"customer_id"`
	GarmentID      *string   `gorm:"column:garment_id;type:varchar(36)" json:"garment_id"`
	OutputImageURL string    `gorm:"column:output_image_url;type:text;not null" json:"output_image_url"`
	PromptUsed     string    `gorm:"column:prompt_used;type:text" json:"prompt_used"`

	Customer *DbCustomer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// TableName 指定表名
func (DbTryonHistory) TableName() string {
	return "tryon_history"
}

// HistoryQuery 历史记录分页查询
type HistoryQuery struct {
	BaseParams
	UserID string `form:"-"`
}

// HistoryItem 返回给前端的历史记录
type HistoryItem struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	CustomerID     string    `json:"customer_id"`
	CustomerName   string    `json:"customer_name"`
	GarmentID      *string   `json:"garment_id"`
	OutputImageURL string    `json:"output_image_url"`
	PromptUsed     string    `json:"prompt_used"`
}

// HistoryListResponse 历史记录分页响应
type HistoryListResponse struct {
	Items []HistoryItem `json:"items"`
	Meta  *Meta         `json:"meta"`
}

// ToHistoryItem 转换为前端结构
func ToHistoryItem(record DbTryonHistory) HistoryItem {
	item := HistoryItem{
		ID:             record.ID,
		CreatedAt:      record.CreatedAt,
		CustomerID:     record.CustomerID,
		GarmentID:      record.GarmentID,
		OutputImageURL: record.OutputImageURL,
		PromptUsed:     record.PromptUsed,
	}
	if record.Customer != nil {
		item.CustomerName = record.Customer.Name
	}
	return item
}

// HistoryUserStat 按店铺聚合的生成统计
type HistoryUserStat struct {
	UserID       string
	Total        int64
	LastActivity *time.Time
}
