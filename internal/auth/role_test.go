package auth

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleGod, PermAdmin, true},
		{RoleGod, PermSchema, true},
		{RoleAdmin, PermAdmin, true},
		{RoleAdmin, PermSchema, true},
		{RoleDba, PermSchema, true},
		{RoleDba, PermAdmin, false},
		{RoleUser, PermDelete, true},
		{RoleUser, PermSchema, false},
		{RoleGuest, PermRead, true},
		{RoleGuest, PermWrite, false},
	}
	for _, tt := range tests {
		if got := tt.role.HasPermission(tt.perm); got != tt.want {
			t.Errorf("%s.HasPermission(%s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestCanGrant(t *testing.T) {
	tests := []struct {
		granter Role
		target  Role
		want    bool
	}{
		{RoleGod, RoleAdmin, true},
		{RoleGod, RoleGod, false},
		{RoleAdmin, RoleDba, true},
		{RoleAdmin, RoleAdmin, false},
		{RoleDba, RoleUser, true},
		{RoleDba, RoleGuest, true},
		{RoleDba, RoleAdmin, false},
		{RoleUser, RoleGuest, false},
	}
	for _, tt := range tests {
		if got := tt.granter.CanGrant(tt.target); got != tt.want {
			t.Errorf("%s.CanGrant(%s) = %v, want %v", tt.granter, tt.target, got, tt.want)
		}
	}
}

func TestRoleFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"god", RoleGod, false},
		{"ADMIN", RoleAdmin, false},
		{"Dba", RoleDba, false},
		{"user", RoleUser, false},
		{"GUEST", RoleGuest, false},
		{"wizard", "", true},
	}
	for _, tt := range tests {
		got, err := RoleFromString(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("RoleFromString(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("RoleFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []Role{RoleGod, RoleAdmin, RoleDba, RoleUser, RoleGuest} {
		if !ValidRole(r) {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if ValidRole(Role("wizard")) {
		t.Error("expected 'wizard' to be invalid")
	}
}
