package entity

import (
	"reflect"
	"testing"
)

func TestIsValidCategory(t *testing.T) {
	tests := []struct {
		name     string
		category string
		want     bool
	}{
		{name: "西装", category: "Suit", want: true},
		{name: "带括号的分类", category: "Jodhpuri (Bandhgala)", want: true},
		{name: "大小写不同", category: "suit", want: false},
		{name: "未知分类", category: "Lehenga", want: false},
		{name: "空分类", category: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidCategory(tt.category); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeSizes(t *testing.T) {
	got := NormalizeSizes([]string{" m", "XL", "huge", "M", "custom"})
	want := StringArray{"M", "XL", "Custom"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestProfileAllowance(t *testing.T) {
	ten := 10
	negative := -1

	tests := []struct {
		name    string
		profile *DbProfile
		want    int
	}{
		{name: "无资料使用默认值", profile: nil, want: 50},
		{name: "未设置额度", profile: &DbProfile{}, want: 50},
		{name: "自定义额度", profile: &DbProfile{FreeTries: &ten}, want: 10},
		{name: "负数额度", profile: &DbProfile{FreeTries: &negative}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.Allowance(50); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestNewShopProfile(t *testing.T) {
	p := NewShopProfile("u-1", 50)
	if p.Role != ProfileRoleShop {
		t.Errorf("expected role %q, got %q", ProfileRoleShop, p.Role)
	}
	if p.PlanType != PlanTypeFreeTrial {
		t.Errorf("expected plan %q, got %q", PlanTypeFreeTrial, p.PlanType)
	}
	if p.ShopName != DefaultShopName {
		t.Errorf("expected shop name %q, got %q", DefaultShopName, p.ShopName)
	}
	if p.Allowance(0) != 50 {
		t.Errorf("expected allowance 50, got %d", p.Allowance(0))
	}
}
