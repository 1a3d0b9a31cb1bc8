package userstore

import "time"

// SubscriptionPlan is the billing interval a user subscribed to.
type SubscriptionPlan string

const (
	PlanMonthly SubscriptionPlan = "monthly"
	PlanAnnual  SubscriptionPlan = "annual"
	PlanNone    SubscriptionPlan = "none"
)

// SubscriptionStatus mirrors the billing provider's status vocabulary.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusTrialing  SubscriptionStatus = "trialing"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusNone      SubscriptionStatus = "none"
)

// Role is derived from subscription status, never authoritative on its own.
type Role string

const (
	RoleFree Role = "free"
	RolePro  Role = "pro"
)

// RoleForStatus derives the user role from a subscription status:
// pro iff the status is active or trialing.
func RoleForStatus(status SubscriptionStatus) Role {
	switch status {
	case StatusActive, StatusTrialing:
		return RolePro
	default:
		return RoleFree
	}
}

// Document field names, shared between the store implementation and the
// components that build partial updates.
const (
	FieldBillingCustomerID   = "billingCustomerId"
	FieldSubscriptionID      = "subscriptionId"
	FieldSubscriptionPlan    = "subscriptionPlan"
	FieldSubscriptionStatus  = "subscriptionStatus"
	FieldSubscriptionEndDate = "subscriptionEndDate"
	FieldRole                = "role"
	FieldProTrialStart       = "proTrialStartDate"
	FieldProTrialEnd         = "proTrialEndDate"
	FieldLastBillingEventAt  = "lastBillingEventAt"
	FieldLastUpdated         = "lastUpdated"
)

// User is the persisted user record. The ID is an opaque, externally issued
// identifier; this service only reads and partially updates the record.
type User struct {
	ID                  string             `bson:"_id"`
	Email               string             `bson:"email,omitempty"`
	BillingCustomerID   *string            `bson:"billingCustomerId,omitempty"`
	SubscriptionID      *string            `bson:"subscriptionId,omitempty"`
	SubscriptionPlan    SubscriptionPlan   `bson:"subscriptionPlan,omitempty"`
	SubscriptionStatus  SubscriptionStatus `bson:"subscriptionStatus,omitempty"`
	SubscriptionEndDate *time.Time         `bson:"subscriptionEndDate,omitempty"`
	Role                Role               `bson:"role,omitempty"`
	ProTrialStartDate   *time.Time         `bson:"proTrialStartDate,omitempty"`
	ProTrialEndDate     *time.Time         `bson:"proTrialEndDate,omitempty"`
	LastBillingEventAt  *time.Time         `bson:"lastBillingEventAt,omitempty"`
	LastUpdated         time.Time          `bson:"lastUpdated,omitempty"`
}

// HasBillingCustomer reports whether the user has been provisioned with a
// billing customer identity.
func (u *User) HasBillingCustomer() bool {
	return u.BillingCustomerID != nil && *u.BillingCustomerID != ""
}
