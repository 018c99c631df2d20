package entity

import "time"

const SettingKeySystemPrompt = "ai_system_prompt"

// DbSystemSetting 系统级键值配置（如 AI 系统提示词）
type DbSystemSetting struct {
	Key         string    `gorm:"column:key;primaryKey;type:varchar(128)" json:"key"`
	Value       string    `gorm:"column:value;type:text" json:"value"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (DbSystemSetting) TableName() string {
	return "system_settings"
}

type SettingUpdateRequest struct {
	Value string `json:"value" binding:"required"`
}
