package commands

import "testing"

func TestRoleSatisfies(t *testing.T) {
	tests := []struct {
		holder   Role
		required Role
		want     bool
	}{
		{RoleUser, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleUser, RoleOwner, false},
		{RoleAdmin, RoleUser, true},
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleOwner, false},
		{RoleOwner, RoleUser, true},
		{RoleOwner, RoleAdmin, true},
		{RoleOwner, RoleOwner, true},
	}
	for _, tt := range tests {
		if got := tt.holder.Satisfies(tt.required); got != tt.want {
			t.Errorf("%s.Satisfies(%s) = %v, want %v", tt.holder, tt.required, got, tt.want)
		}
	}
}

func TestRoleString(t *testing.T) {
	if RoleUser.String() != "user" || RoleAdmin.String() != "admin" || RoleOwner.String() != "owner" {
		t.Fatalf("unexpected role names: %s %s %s", RoleUser, RoleAdmin, RoleOwner)
	}
}
