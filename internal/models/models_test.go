package models

import (
	"testing"
	"time"
)

func TestProduct_GetUserID(t *testing.T) {
	product := &Product{UserID: 42}
	if got := product.GetUserID(); got != 42 {
		t.Errorf("GetUserID() = %d, want 42", got)
	}
}

func TestOfferAndPayment_GetUserID(t *testing.T) {
	if got := (&Offer{UserID: 3}).GetUserID(); got != 3 {
		t.Errorf("Offer.GetUserID() = %d, want 3", got)
	}
	if got := (&MembershipPayment{UserID: 9}).GetUserID(); got != 9 {
		t.Errorf("MembershipPayment.GetUserID() = %d, want 9", got)
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"new", ConditionNew, true},
		{"Baru", ConditionNew, true},
		{" used ", ConditionUsed, true},
		{"BEKAS", ConditionUsed, true},
		{"refurbished", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCondition(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCondition(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestProduct_CoverImageAndCategoryName(t *testing.T) {
	p := &Product{}
	if p.CoverImage() != DefaultProductImage {
		t.Errorf("CoverImage() = %q, want default", p.CoverImage())
	}
	if p.CategoryName() != "" {
		t.Errorf("dangling category should render empty, got %q", p.CategoryName())
	}
	p.Images = []string{"images/products/a.jpg", "images/products/b.jpg"}
	p.Category = &Category{Name: "Fashion"}
	if p.CoverImage() != "images/products/a.jpg" {
		t.Errorf("CoverImage() = %q", p.CoverImage())
	}
	if p.CategoryName() != "Fashion" {
		t.Errorf("CategoryName() = %q", p.CategoryName())
	}
}

func TestUser_MembershipActive(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(24 * time.Hour)
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name string
		user User
		want bool
	}{
		{"none", User{Membership: MembershipNone}, false},
		{"empty", User{}, false},
		{"permanent gold", User{Membership: MembershipGold}, true},
		{"silver not expired", User{Membership: MembershipSilver, MembershipExpiresAt: &later}, true},
		{"bronze expired", User{Membership: MembershipBronze, MembershipExpiresAt: &earlier}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.MembershipActive(now); got != tt.want {
				t.Errorf("MembershipActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupTier(t *testing.T) {
	tier, ok := LookupTier("Gold")
	if !ok || tier.Key != MembershipGold || tier.Price != "Rp59.900" {
		t.Fatalf("LookupTier(Gold) = %+v, %v", tier, ok)
	}
	if _, ok := LookupTier("platinum"); ok {
		t.Error("platinum should not be a tier")
	}
	if _, ok := LookupTier(MembershipNone); ok {
		t.Error("none is not purchasable")
	}
}

func TestPasswordResetToken_Expired(t *testing.T) {
	now := time.Now()
	tok := &PasswordResetToken{ExpiresAt: now.Add(time.Hour)}
	if tok.Expired(now) {
		t.Error("fresh token reported expired")
	}
	if !tok.Expired(now.Add(time.Hour)) {
		t.Error("token should expire exactly at ExpiresAt")
	}
}
