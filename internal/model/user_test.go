package model

import "testing"

func strPtr(s string) *string { return &s }

func TestProfilePatch_Apply_MergesOnlySuppliedFields(t *testing.T) {
	u := UserIdentity{
		ID:        "u1",
		FirstName: "A",
		LastName:  "B",
		City:      "Mumbai",
		Pincode:   "400001",
	}

	merged := ProfilePatch{City: strPtr("Kolkata")}.Apply(u)

	if merged.City != "Kolkata" {
		t.Errorf("City = %q, want %q", merged.City, "Kolkata")
	}
	if merged.FirstName != "A" || merged.LastName != "B" || merged.Pincode != "400001" {
		t.Errorf("未指定フィールドが保持されていない: %+v", merged)
	}
	if merged.ID != "u1" {
		t.Errorf("ID = %q, want %q", merged.ID, "u1")
	}
	if u.City != "Mumbai" {
		t.Errorf("元のidentityが変更された: City = %q", u.City)
	}
}

func TestProfilePatch_Apply_EmptyStringOverwrites(t *testing.T) {
	u := UserIdentity{ID: "u1", Address: "old"}

	merged := ProfilePatch{Address: strPtr("")}.Apply(u)

	if merged.Address != "" {
		t.Errorf("Address = %q, want empty", merged.Address)
	}
}

func TestProfilePatch_IsEmpty(t *testing.T) {
	if !(ProfilePatch{}).IsEmpty() {
		t.Error("空パッチはIsEmpty()=trueであるべき")
	}
	if (ProfilePatch{Phone: strPtr("9999999999")}).IsEmpty() {
		t.Error("フィールド指定ありのパッチはIsEmpty()=falseであるべき")
	}
}

func TestCartLineItem_Subtotal(t *testing.T) {
	item := CartLineItem{ID: "sku1", Price: 12.5, Quantity: 4}
	if got := item.Subtotal(); got != 50 {
		t.Errorf("Subtotal() = %v, want 50", got)
	}
}
