package types

// Tier is a named subscription level with fixed entitlement limits.
type Tier string

const (
	TierFree   Tier = "free"
	TierPro    Tier = "pro"
	TierFamily Tier = "family"
)

// IsValid reports whether t is one of the known tiers.
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierPro, TierFamily:
		return true
	}
	return false
}

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubStatusActive    SubscriptionStatus = "active"
	SubStatusCancelled SubscriptionStatus = "cancelled"
	SubStatusExpired   SubscriptionStatus = "expired"
)

// IsValid reports whether s is one of the known statuses.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubStatusActive, SubStatusCancelled, SubStatusExpired:
		return true
	}
	return false
}

// UsageKind selects which monthly counter an operation touches.
// The string values match the wire format of PUT /usage.
type UsageKind string

const (
	UsageRecipe   UsageKind = "recipe"
	UsageMealPlan UsageKind = "mealPlan"
)

// IsValid reports whether k names a counter.
func (k UsageKind) IsValid() bool {
	return k == UsageRecipe || k == UsageMealPlan
}

// Feedback is the user's rating signal on a recipe.
type Feedback string

const (
	FeedbackNone    Feedback = ""
	FeedbackLike    Feedback = "like"
	FeedbackDislike Feedback = "dislike"
)

// IsValid reports whether f is an accepted feedback value. The empty value
// clears previously recorded feedback.
func (f Feedback) IsValid() bool {
	switch f {
	case FeedbackNone, FeedbackLike, FeedbackDislike:
		return true
	}
	return false
}

// ContentKind distinguishes the two user-owned content entities.
type ContentKind string

const (
	KindRecipe   ContentKind = "recipe"
	KindMealPlan ContentKind = "meal_plan"
)
