package types

import "time"

// Limits is the static entitlement tuple for a tier.
type Limits struct {
	RecipesPerMonth    int  `json:"recipesPerMonth"`
	MealPlansPerMonth  int  `json:"mealPlansPerMonth"`
	CanEditRecipes     bool `json:"canEditRecipes"`
	CanAccessMealPlans bool `json:"canAccessMealPlans"`
	CanSaveUnlimited   bool `json:"canSaveUnlimited"`
}

// Subscription is a user's current tier and billing period. A nil EndDate
// means the subscription does not expire.
type Subscription struct {
	UserID    string             `json:"userId,omitempty"`
	Tier      Tier               `json:"tier"`
	Status    SubscriptionStatus `json:"status"`
	StartDate time.Time          `json:"startDate"`
	EndDate   *time.Time         `json:"endDate,omitempty"`
	AutoRenew bool               `json:"autoRenew"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// DefaultSubscription returns the implicit record for a user never seen before.
func DefaultSubscription(userID string, now time.Time) *Subscription {
	return &Subscription{
		UserID:    userID,
		Tier:      TierFree,
		Status:    SubStatusActive,
		StartDate: now,
		AutoRenew: false,
		UpdatedAt: now,
	}
}

// UsageStats holds the generation counters for one user and calendar month.
type UsageStats struct {
	UserID             string    `json:"userId,omitempty"`
	CurrentMonth       string    `json:"currentMonth"`
	RecipesGenerated   int       `json:"recipesGenerated"`
	MealPlansGenerated int       `json:"mealPlansGenerated"`
	LastReset          time.Time `json:"lastReset"`
}

// Count returns the counter selected by kind.
func (u UsageStats) Count(kind UsageKind) int {
	if kind == UsageMealPlan {
		return u.MealPlansGenerated
	}
	return u.RecipesGenerated
}

// Recipe is a user-owned recipe: a typed envelope plus an opaque content bag
// (ingredients, instructions, nutrition...) that is stored verbatim.
type Recipe struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"-"`
	Title       string     `json:"title" validate:"required,max=300"`
	Description string     `json:"description,omitempty"`
	PrepTime    string     `json:"prepTime,omitempty"`
	CookTime    string     `json:"cookTime,omitempty"`
	Servings    int        `json:"servings,omitempty" validate:"omitempty,min=1,max=50"`
	Situation   string     `json:"situation,omitempty"`
	Tags        []string   `json:"tags,omitempty" validate:"max=30"`
	Feedback    Feedback   `json:"feedback,omitempty" validate:"omitempty,oneof=like dislike"`
	Added       string     `json:"added"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Content     ContentBag `json:"content,omitempty"`
}

// RecipePatch is a partial update. Nil envelope fields are left unchanged;
// Content keys are shallow-merged into the existing bag.
type RecipePatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	PrepTime    *string    `json:"prepTime,omitempty"`
	CookTime    *string    `json:"cookTime,omitempty"`
	Servings    *int       `json:"servings,omitempty" validate:"omitempty,min=1,max=50"`
	Situation   *string    `json:"situation,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Content     ContentBag `json:"content,omitempty"`
}

// Apply merges the patch into r.
func (p RecipePatch) Apply(r *Recipe) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.PrepTime != nil {
		r.PrepTime = *p.PrepTime
	}
	if p.CookTime != nil {
		r.CookTime = *p.CookTime
	}
	if p.Servings != nil {
		r.Servings = *p.Servings
	}
	if p.Situation != nil {
		r.Situation = *p.Situation
	}
	if p.Tags != nil {
		r.Tags = p.Tags
	}
	r.Content = r.Content.Merge(p.Content)
}

// MealPlan is a user-owned multi-day plan. Days, shopping list and per-meal
// detail live in the content bag.
type MealPlan struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"-"`
	Title       string     `json:"title" validate:"required,max=300"`
	Description string     `json:"description,omitempty"`
	Days        int        `json:"days,omitempty" validate:"omitempty,min=1,max=31"`
	Servings    int        `json:"servings,omitempty" validate:"omitempty,min=1,max=50"`
	Situation   string     `json:"situation,omitempty"`
	Added       string     `json:"added"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Content     ContentBag `json:"content,omitempty"`
}

// MealPlanPatch is a partial update to a MealPlan.
type MealPlanPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Days        *int       `json:"days,omitempty" validate:"omitempty,min=1,max=31"`
	Servings    *int       `json:"servings,omitempty" validate:"omitempty,min=1,max=50"`
	Situation   *string    `json:"situation,omitempty"`
	Content     ContentBag `json:"content,omitempty"`
}

// Apply merges the patch into m.
func (p MealPlanPatch) Apply(m *MealPlan) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Days != nil {
		m.Days = *p.Days
	}
	if p.Servings != nil {
		m.Servings = *p.Servings
	}
	if p.Situation != nil {
		m.Situation = *p.Situation
	}
	m.Content = m.Content.Merge(p.Content)
}

// Preferences are the household settings fed into generation requests.
type Preferences struct {
	UserID              string    `json:"-"`
	FamilySize          int       `json:"familySize" validate:"required,min=1,max=20"`
	SkillLevel          string    `json:"skillLevel" validate:"required,oneof=beginner intermediate advanced"`
	DietaryRestrictions []string  `json:"dietaryRestrictions,omitempty"`
	Cuisines            []string  `json:"cuisines,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Calendar maps a YYYY-MM-DD date to the recipe or meal plan assigned to it.
type Calendar struct {
	UserID      string            `json:"-"`
	Assignments map[string]string `json:"assignments"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Session is a server-side login session referenced by a bearer token.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// GenerateRequest is the structured input to the content generator.
type GenerateRequest struct {
	Situation   string       `json:"situation" validate:"required,max=500"`
	FamilySize  int          `json:"familySize" validate:"required,min=1,max=20"`
	Constraints []string     `json:"constraints,omitempty" validate:"max=20,dive,max=200"`
	Days        int          `json:"days,omitempty" validate:"omitempty,min=1,max=14"`
	Preferences *Preferences `json:"preferences,omitempty" validate:"-"`
}
