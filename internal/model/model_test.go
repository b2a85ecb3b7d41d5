package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnumsValid(t *testing.T) {
	for _, p := range Priorities {
		assert.True(t, p.Valid(), p)
	}
	for _, s := range Statuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Priority("high").Valid(), "priority is case sensitive")
	assert.False(t, Status("done").Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("user").Valid())
}

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, User{Role: RoleAdmin}.IsAdmin())
	assert.False(t, User{Role: RoleApprentice}.IsAdmin())
}
