package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fitlook/internal/entity"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
	"gorm.io/gorm"
)

// historyPageSize 单次拉取的历史行数，需不超过 PostgREST 的 max-rows
const historyPageSize = 1000

const (
	tableUsers     = "users"
	tableProfiles  = "profiles"
	tableGarments  = "garments"
	tableCustomers = "customers"
	tableHistory   = "tryon_history"
	tableSettings  = "system_settings"
)

// Repository 基于 Supabase PostgREST 的仓库实现，表结构与 GORM 迁移保持一致。
type Repository struct {
	client *supa.Client
}

// NewRepository 创建 Supabase 仓库。
func NewRepository(url, serviceKey string) (*Repository, error) {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		return nil, errors.New("supabase: missing url")
	}
	if strings.TrimSpace(serviceKey) == "" {
		return nil, errors.New("supabase: missing service key")
	}
	client, err := supa.NewClient(url, serviceKey, &supa.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase: create client: %w", err)
	}
	return &Repository{client: client}, nil
}

func (r *Repository) ready(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("repository not initialised")
	}
	return ctx.Err()
}

func newestFirst() *postgrest.OrderOpts {
	return &postgrest.OrderOpts{Ascending: false}
}

// decodeRows 解析 PostgREST 返回的 JSON 数组。
func decodeRows[T any](data []byte) ([]T, error) {
	var rows []T
	if len(data) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

// firstRow 取第一行，空结果返回 gorm.ErrRecordNotFound。
func firstRow[T any](data []byte) (*T, error) {
	rows, err := decodeRows[T](data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// requireAffected 将 representation 返回的空数组视为未找到。
func requireAffected(data []byte) error {
	rows, err := decodeRows[json.RawMessage](data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

var ilikeSanitizer = strings.NewReplacer(",", " ", "(", " ", ")", " ", "\"", " ", "*", " ", "%", " ")

// ilikeAny 生成 or=(col.ilike.*term*,...) 过滤条件，空关键字返回 false
func ilikeAny(term string, columns ...string) (string, bool) {
	term = strings.TrimSpace(ilikeSanitizer.Replace(term))
	if term == "" {
		return "", false
	}
	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		parts = append(parts, fmt.Sprintf("%s.ilike.*%s*", column, term))
	}
	return strings.Join(parts, ","), true
}

func withUpdatedAt(updates map[string]interface{}) map[string]interface{} {
	updates["updated_at"] = time.Now().UTC()
	return updates
}

// ---- 登录账户 ----

func (r *Repository) CreateUser(ctx context.Context, user *entity.DbUser) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user is nil")
	}
	if user.ID == "" {
		user.ID = entity.NewID()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	_, _, err := r.client.From(tableUsers).Insert(user, false, "", "minimal", "").ExecuteWithContext(ctx)
	return err
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return nil, fmt.Errorf("email is empty")
	}
	data, _, err := r.client.From(tableUsers).Select("*", "", false).Eq("email", trimmed).Limit(1, "").ExecuteWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return firstRow[entity.DbUser](data)
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*entity.DbUser, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	data, _, err := r.client.From(tableUsers).Select("*", "", false).Eq("id", id).Limit(1, "").ExecuteWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return firstRow[entity.DbUser](data)
}

func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("invalid user id")
	}
	_, _, err := r.client.From(tableUsers).Delete("minimal", "").Eq("id", id).ExecuteWithContext(ctx)
	return err
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	if err := r.ready(ctx); err != nil {
		return 0, err
	}
	_, count, err := r.client.From(tableUsers).Select("id", "exact", true).ExecuteWithContext(ctx)
	return count, err
}

// ---- 店铺资料 ----

func (r *Repository) GetProfile(ctx context.Context, userID string) (*entity.DbProfile, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	data, _, err := r.client.From(tableProfiles).Select("*", "", false).Eq("user_id", userID).Limit(1, "").ExecuteWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return firstRow[entity.DbProfile](data)
}

func (r *Repository) UpsertProfile(ctx context.Context, profile *entity.DbProfile) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if profile == nil || strings.TrimSpace(profile.UserID) == "" {
		return fmt.Errorf("invalid profile")
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	_, _, err := r.client.From(tableProfiles).Upsert(profile, "user_id", "minimal", "").ExecuteWithContext(ctx)
	return err
}

func (r *Repository) UpdateProfile(ctx context.Context, userID string, updates entity.ProfileUpdates) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if updates.IsEmpty() {
		return nil
	}
	data, _, err := r.client.From(tableProfiles).
		Update(withUpdatedAt(updates.ToMap()), "representation", "").
		Eq("user_id", userID).
		ExecuteWithContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(data)
}

func (r *Repository) ListProfiles(ctx context.Context, params entity.ProfileQuery) ([]entity.DbProfile, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	query := r.client.From(tableProfiles).Select("*", "", false)
	if role := strings.TrimSpace(params.Role); role != "" {
		query = query.Eq("role", role)
	}
	if filter, ok := ilikeAny(params.Search, "full_name", "shop_name"); ok {
		query = query.Or(filter, "")
	}
	data, _, err := query.Order("created_at", newestFirst()).ExecuteWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return decodeRows[entity.DbProfile](data)
}

// ---- 服装目录 ----

func (r *Repository) CreateGarment(ctx context.Context, garment *entity.DbGarment) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if garment == nil {
		return fmt.Errorf("garment is nil")
	}
	if garment.ID == "" {
		garment.ID = entity.NewID()
	}
	now := time.Now().UTC()
	if garment.CreatedAt.IsZero() {
		garment.CreatedAt = now
	}
	garment.UpdatedAt = now
	_, _, err := r.client.From(tableGarments).Insert(garment, false, "", "minimal", "").ExecuteWithContext(ctx)
	return err
}

func (r *Repository) UpdateGarment(ctx context.Context, userID, id string, updates entity.GarmentUpdates) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if updates.IsEmpty() {
		return nil
	}
	data, _, err := r.client.From(tableGarments).
		Update(withUpdatedAt(updates.ToMap()), "representation", "").
		Eq("id", id).Eq("user_id", userID).
		ExecuteWithContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(data)
}

func (r *Repository) DeleteGarment(ctx context.Context, userID, id string) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	data, _, err := r.client.From(tableGarments).Delete("representation", "").Eq("id", id).Eq("user_id", userID).ExecuteWithContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(data)
}

func (r *Repository) GetGarment(ctx context.Context, userID, id string) (*entity.DbGarment, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	data, _, err := r.client.From(tableGarments).Select("*", "", false).Eq("id", id).Eq("user_id", userID).Limit(1, "").ExecuteWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return firstRow[entity.DbGarment](data)
}

func (r *Repository) ListGarments(ctx context.Context, query entity.GarmentQuery) ([]entity.DbGarment, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query.UserID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	builder := r.client.From(tableGarments).Select("*", "", false).Eq("user_id", query.UserID)
	if category := strings.TrimSpace(query.Category); category != "" {
		builder = builder.Eq("category", category)
	}
	if filter, ok := ilikeAny(query.Search, "name", "category"); ok {
		builder = builder.Or(filter, "")
	}
	data, _, err := builder.Order("created_at", newestFirst()).ExecuteWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return decodeRows[entity.DbGarment](data)
}

// ---- 顾客 ----

func (r *Repository) CreateCustomer(ctx context.Context, customer *entity.DbCustomer) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if customer == nil {
		return fmt.Errorf("customer is nil")
	}
	if customer.ID == "" {
		customer.ID = entity.NewID()
	}
	now := time.Now().UTC()
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = now
	}
	customer.UpdatedAt = now
	_, _, err := r.client.From(tableCustomers).Insert(customer, false, "", "minimal", "").ExecuteWithContext(ctx)
	return err
}

func (r *Repository) UpdateCustomer(ctx context.Context, userID, id string, updates entity.CustomerUpdates) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if updates.IsEmpty() {
		return nil
	}
	data, _, err := r.client.From(tableCustomers).
		Update(withUpdatedAt(updates.ToMap()), "representation", "").
		Eq("id", id).Eq("user_id", userID).
		ExecuteWithContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(data)
}

func (r *Repository) DeleteCustomer(ctx context.Context, userID, id string) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	data, _, err := r.client.From(tableCustomers).Delete("representation", "").Eq("id", id).Eq("user_id", userID).ExecuteWithContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(data)
}

func (r *Repository) GetCustomer(ctx context.Context, userID, id string) (*entity.DbCustomer, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	data, _, err := r.client.From(tableCustomers).Select("*", "", false).Eq("id", id).Eq("user_id", userID).Limit(1, "").ExecuteWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return firstRow[entity.DbCustomer](data)
}

func (r *Repository) ListCustomers(ctx context.Context, userID string) ([]entity.DbCustomer, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	data, _, err := r.client.From(tableCustomers).Select("*", "", false).Eq("user_id", userID).Order("created_at", newestFirst()).ExecuteWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return decodeRows[entity.DbCustomer](data)
}

// ---- 试穿历史 ----

func (r *Repository) CreateHistory(ctx context.Context, record *entity.DbTryonHistory) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	if record.ID == "" {
		record.ID = entity.NewID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	row := *record
	row.Customer = nil
	_, _, err := r.client.From(tableHistory).Insert(row, false, "", "minimal", "").ExecuteWithContext(ctx)
	return err
}

func (r *Repository) ListHistory(ctx context.Context, params *entity.HistoryQuery) ([]entity.DbTryonHistory, *entity.Meta, error) {
	if err := r.ready(ctx); err != nil {
		return nil, nil, err
	}
	page, pageSize := int64(1), int64(20)
	builder := r.client.From(tableHistory).Select("*", "exact", false)
	if params != nil {
		if trimmed := strings.TrimSpace(params.UserID); trimmed != "" {
			builder = builder.Eq("user_id", trimmed)
		}
		if params.Page > 0 {
			page = params.Page
		}
		if params.PageSize > 0 {
			pageSize = params.PageSize
		}
	}
	from := int((page - 1) * pageSize)
	to := from + int(pageSize) - 1

	data, total, err := builder.Order("created_at", newestFirst()).Range(from, to, "").ExecuteWithContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	records, err := decodeRows[entity.DbTryonHistory](data)
	if err != nil {
		return nil, nil, err
	}
	if err := r.attachCustomers(ctx, records); err != nil {
		return nil, nil, err
	}
	return records, &entity.Meta{Total: total, Page: page, PageSize: pageSize}, nil
}

// attachCustomers 补充顾客信息（对应 GORM 实现中的 Preload）。
func (r *Repository) attachCustomers(ctx context.Context, records []entity.DbTryonHistory) error {
	ids := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.CustomerID == "" {
			continue
		}
		if _, ok := seen[rec.CustomerID]; ok {
			continue
		}
		seen[rec.CustomerID] = struct{}{}
		ids = append(ids, rec.CustomerID)
	}
	if len(ids) == 0 {
		return nil
	}
	data, _, err := r.client.From(tableCustomers).Select("*", "", false).In("id", ids).ExecuteWithContext(ctx)
	if err != nil {
		return err
	}
	customers, err := decodeRows[entity.DbCustomer](data)
	if err != nil {
		return err
	}
	byID := make(map[string]*entity.DbCustomer, len(customers))
	for i := range customers {
		byID[customers[i].ID] = &customers[i]
	}
	for i := range records {
		records[i].Customer = byID[records[i].CustomerID]
	}
	return nil
}

func (r *Repository) GetHistory(ctx context.Context, id string) (*entity.DbTryonHistory, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	data, _, err := r.client.From(tableHistory).Select("*", "", false).Eq("id", id).Limit(1, "").ExecuteWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return firstRow[entity.DbTryonHistory](data)
}

func (r *Repository) DeleteHistory(ctx context.Context, id string) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	data, _, err := r.client.From(tableHistory).Delete("representation", "").Eq("id", id).ExecuteWithContext(ctx)
	if err != nil {
		return err
	}
	return requireAffected(data)
}

func (r *Repository) historyFilter(builder *postgrest.FilterBuilder, userID string, since time.Time) *postgrest.FilterBuilder {
	if trimmed := strings.TrimSpace(userID); trimmed != "" {
		builder = builder.Eq("user_id", trimmed)
	}
	if !since.IsZero() {
		builder = builder.Gte("created_at", since.UTC().Format(time.RFC3339))
	}
	return builder
}

func (r *Repository) CountHistory(ctx context.Context, userID string, since time.Time) (int64, error) {
	if err := r.ready(ctx); err != nil {
		return 0, err
	}
	_, count, err := r.historyFilter(r.client.From(tableHistory).Select("id", "exact", true), userID, since).ExecuteWithContext(ctx)
	return count, err
}

type historyTimeRow struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// scanHistoryTimes 按 created_at 升序分页拉取，直到返回空页。
// 以实际返回行数推进偏移，服务端 max-rows 小于 historyPageSize 时也不会漏行。
func (r *Repository) scanHistoryTimes(ctx context.Context, userID string, since time.Time) ([]historyTimeRow, error) {
	ascending := &postgrest.OrderOpts{Ascending: true}
	var all []historyTimeRow
	for from := 0; ; {
		data, _, err := r.historyFilter(r.client.From(tableHistory).Select("user_id,created_at", "", false), userID, since).
			Order("created_at", ascending).
			Order("id", ascending).
			Range(from, from+historyPageSize-1, "").
			ExecuteWithContext(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := decodeRows[historyTimeRow](data)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return all, nil
		}
		all = append(all, rows...)
		from += len(rows)
	}
}

func (r *Repository) ListHistoryTimes(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := r.scanHistoryTimes(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		times = append(times, row.CreatedAt)
	}
	return times, nil
}

// HistoryStatsByUser PostgREST 不支持 GROUP BY，这里分页拉取时间列后在内存聚合。
func (r *Repository) HistoryStatsByUser(ctx context.Context) ([]entity.HistoryUserStat, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := r.scanHistoryTimes(ctx, "", time.Time{})
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var stats []entity.HistoryUserStat
	for _, row := range rows {
		pos, ok := index[row.UserID]
		if !ok {
			pos = len(stats)
			index[row.UserID] = pos
			stats = append(stats, entity.HistoryUserStat{UserID: row.UserID})
		}
		stat := &stats[pos]
		stat.Total++
		if stat.LastActivity == nil || row.CreatedAt.After(*stat.LastActivity) {
			ts := row.CreatedAt
			stat.LastActivity = &ts
		}
	}
	return stats, nil
}

// ---- 系统设置 ----

func (r *Repository) GetSetting(ctx context.Context, key string) (*entity.DbSystemSetting, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	data, _, err := r.client.From(tableSettings).Select("*", "", false).Eq("key", key).Limit(1, "").ExecuteWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return firstRow[entity.DbSystemSetting](data)
}

func (r *Repository) UpsertSetting(ctx context.Context, setting *entity.DbSystemSetting) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	if setting == nil || strings.TrimSpace(setting.Key) == "" {
		return fmt.Errorf("invalid setting")
	}
	setting.UpdatedAt = time.Now().UTC()
	_, _, err := r.client.From(tableSettings).Upsert(setting, "key", "minimal", "").ExecuteWithContext(ctx)
	return err
}
