package userstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/subflowhq/gateway/pkg/userstore"
)

func TestRoleForStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status userstore.SubscriptionStatus
		want   userstore.Role
	}{
		{userstore.StatusActive, userstore.RolePro},
		{userstore.StatusTrialing, userstore.RolePro},
		{userstore.StatusPastDue, userstore.RoleFree},
		{userstore.StatusCancelled, userstore.RoleFree},
		{userstore.StatusNone, userstore.RoleFree},
		{userstore.SubscriptionStatus("paused"), userstore.RoleFree},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, userstore.RoleForStatus(tc.status))
		})
	}
}

func TestUser_HasBillingCustomer(t *testing.T) {
	t.Parallel()

	var u userstore.User
	assert.False(t, u.HasBillingCustomer())

	empty := ""
	u.BillingCustomerID = &empty
	assert.False(t, u.HasBillingCustomer())

	id := "cus_123"
	u.BillingCustomerID = &id
	assert.True(t, u.HasBillingCustomer())
}
