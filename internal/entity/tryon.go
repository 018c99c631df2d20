package entity

// TryOnRequest 发起试穿
type TryOnRequest struct {
	CustomerID  string `json:"customer_id" binding:"required"`
	Selection   string `json:"selection" binding:"required"`
	GarmentID   string `json:"garment_id"`
	Category    string `json:"category"`
	Mode        string `json:"mode"`
	Instruction string `json:"instruction"`
}

// TryOnResultItem 单个成功生成结果
type TryOnResultItem struct {
	Garment DbGarment `json:"garment"`
	URL     string    `json:"url"`
}

// TryOnResponse 试穿结果
type TryOnResponse struct {
	Status  string            `json:"status"`
	Results []TryOnResultItem `json:"results"`
	Failed  int               `json:"failed"`
	Total   int               `json:"total"`
	Cursor  int               `json:"cursor"`
}

// ImageEditRequest 基于已有图片的编辑
type ImageEditRequest struct {
	SourceURL string `json:"source_url" binding:"required"`
	Prompt    string `json:"prompt" binding:"required"`
}

// UsageSummary 用量与计费
type UsageSummary struct {
	Allowance        int          `json:"allowance"`
	TotalGenerations int64        `json:"total_generations"`
	FreeRemaining    int64        `json:"free_remaining"`
	BillableUnits    int64        `json:"billable_units"`
	BillableAmount   int64        `json:"billable_amount"`
	UnitRate         int          `json:"unit_rate"`
	Weekly           []DailyCount `json:"weekly"`
}

// DailyCount 单日生成数
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// UploadResponse 上传结果
type UploadResponse struct {
	URL string `json:"url"`
}
