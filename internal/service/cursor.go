package service

import (
	"fitlook/internal/entity"
	"fmt"
)

// ResultCursor 在一次试穿产出的结果序列上移动，首尾循环。
// 导航只切换当前展示的图片，不会触发重新生成。
type ResultCursor struct {
	results []entity.TryOnResultItem
	index   int
}

// NewResultCursor 以第一张结果为当前项。
func NewResultCursor(results []entity.TryOnResultItem) *ResultCursor {
	copied := make([]entity.TryOnResultItem, len(results))
	copy(copied, results)
	return &ResultCursor{results: copied}
}

func (c *ResultCursor) Len() int {
	if c == nil {
		return 0
	}
	return len(c.results)
}

func (c *ResultCursor) Index() int {
	if c == nil {
		return 0
	}
	return c.index
}

// Results 返回结果副本
func (c *ResultCursor) Results() []entity.TryOnResultItem {
	if c == nil {
		return nil
	}
	out := make([]entity.TryOnResultItem, len(c.results))
	copy(out, c.results)
	return out
}

// Current 当前展示的结果；序列为空时返回 false。
func (c *ResultCursor) Current() (entity.TryOnResultItem, bool) {
	if c.Len() == 0 {
		return entity.TryOnResultItem{}, false
	}
	return c.results[c.index], true
}

// Next 前进一项，越过末尾回到第一项。
func (c *ResultCursor) Next() int {
	if c.Len() == 0 {
		return 0
	}
	c.index = (c.index + 1) % len(c.results)
	return c.index
}

// Prev 后退一项，越过开头回到最后一项。
func (c *ResultCursor) Prev() int {
	if c.Len() == 0 {
		return 0
	}
	c.index = (c.index - 1 + len(c.results)) % len(c.results)
	return c.index
}

// Select 直接跳到指定位置（缩略图点击）。
func (c *ResultCursor) Select(index int) error {
	if index < 0 || index >= c.Len() {
		return fmt.Errorf("result index %d out of range [0,%d)", index, c.Len())
	}
	c.index = index
	return nil
}
