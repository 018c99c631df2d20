package entity

import "time"

const (
	ProfileRoleShop  = "shop"
	ProfileRoleAdmin = "admin"

	PlanTypeFreeTrial = "Free Trial"
	DefaultShopName   = "My Shop"
)

// DbProfile 店铺资料，与登录账户一一对应，承载角色与免费额度。
type DbProfile struct {
	UserID    string    `gorm:"column:user_id;primaryKey;type:varchar(36)" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	FullName  string    `gorm:"column:full_name;type:varchar(255)" json:"full_name"`
	ShopName  string    `gorm:"column:shop_name;type:varchar(255)" json:"shop_name"`
	Role      string    `gorm:"column:role;type:varchar(32);index;not null" json:"role"`
	FreeTries *int      `gorm:"column:free_tries" json:"free_tries"`
	PlanType  string    `gorm:"column:plan_type;type:varchar(64)" json:"plan_type"`
}

// TableName 指定表名
func (DbProfile) TableName() string {
	return "profiles"
}

// IsAdmin 是否为管理员资料
func (p *DbProfile) IsAdmin() bool {
	return p != nil && p.Role == ProfileRoleAdmin
}

// Allowance 返回免费额度，未设置时使用 fallback。
func (p *DbProfile) Allowance(fallback int) int {
	if p == nil || p.FreeTries == nil {
		return fallback
	}
	if *p.FreeTries < 0 {
		return 0
	}
	return *p.FreeTries
}

// NewShopProfile 构建首次登录时自动开通的店铺资料。
func NewShopProfile(userID string, freeTries int) *DbProfile {
	tries := freeTries
	return &DbProfile{
		UserID:    userID,
		ShopName:  DefaultShopName,
		Role:      ProfileRoleShop,
		FreeTries: &tries,
		PlanType:  PlanTypeFreeTrial,
	}
}

// ProfileUpdates 店铺资料更新字段
type ProfileUpdates struct {
	FullName  *string
	ShopName  *string
	FreeTries *int
	PlanType  *string
}

// ToMap 转换为更新 map（内部使用）
func (u ProfileUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.FullName != nil {
		updates["full_name"] = *u.FullName
	}
	if u.ShopName != nil {
		updates["shop_name"] = *u.ShopName
	}
	if u.FreeTries != nil {
		updates["free_tries"] = *u.FreeTries
	}
	if u.PlanType != nil {
		updates["plan_type"] = *u.PlanType
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u ProfileUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// ShopCreateRequest 管理员创建店铺账户
type ShopCreateRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FullName  string `json:"full_name"`
	ShopName  string `json:"shop_name" binding:"required"`
	FreeTries *int   `json:"free_tries"`
}

// ShopUpdateRequest 管理员更新店铺资料
type ShopUpdateRequest struct {
	FullName  *string `json:"full_name"`
	ShopName  *string `json:"shop_name"`
	FreeTries *int    `json:"free_tries"`
	PlanType  *string `json:"plan_type"`
}

// ShopOverview 管理后台中单个店铺的统计行
type ShopOverview struct {
	Profile          DbProfile  `json:"profile"`
	Email            string     `json:"email"`
	TotalGenerations int64      `json:"total_generations"`
	LastActivity     *time.Time `json:"last_activity"`
}

// AdminOverview 管理后台首页数据
type AdminOverview struct {
	TotalShops     int            `json:"total_shops"`
	TotalImages    int64          `json:"total_images"`
	TodayImages    int64          `json:"today_images"`
	HighUsageShops int            `json:"high_usage_shops"`
	Weekly         []DailyCount   `json:"weekly"`
	Shops          []ShopOverview `json:"shops"`
}

// ProfileQuery 资料列表筛选，Search 匹配负责人姓名或店铺名
type ProfileQuery struct {
	Role   string
	Search string
}
