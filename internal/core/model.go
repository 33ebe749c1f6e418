package core

import (
	"time"
)

// Category is one label of the fixed classification taxonomy
type Category string

const (
	CategoryPersonal      Category = "Personal"
	CategoryWork          Category = "Work"
	CategoryFinance       Category = "Bank/Finance"
	CategoryPromotions    Category = "Promotions/Ads"
	CategoryNotifications Category = "Notifications"
	CategoryTravel        Category = "Travel"
	CategoryShopping      Category = "Shopping"
	CategorySocialMedia   Category = "Social Media"
)

// FallbackCategory is returned whenever the model answer cannot be mapped
const FallbackCategory = CategoryNotifications

// DateLayout is the calendar-date format used for usage records
const DateLayout = "2006-01-02"

var categories = []Category{
	CategoryPersonal,
	CategoryWork,
	CategoryFinance,
	CategoryPromotions,
	CategoryNotifications,
	CategoryTravel,
	CategoryShopping,
	CategorySocialMedia,
}

var categoryDescriptions = map[Category]string{
	CategoryPersonal:      "Emails from friends, family, personal contacts",
	CategoryWork:          "Professional correspondence, project updates, company-wide emails",
	CategoryFinance:       "Statements, transaction alerts, financial updates",
	CategoryPromotions:    "Marketing emails, newsletters, sales offers",
	CategoryNotifications: "System alerts, app notifications (non-social media), reminders",
	CategoryTravel:        "Flight confirmations, hotel bookings, rental car reservations",
	CategoryShopping:      "Order confirmations, shipping updates, receipts from online purchases",
	CategorySocialMedia:   "Notifications from Facebook, Instagram, Twitter, LinkedIn, etc.",
}

// Categories returns the ordered category set. The returned slice is a copy.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Description returns the one-line description used in the prompt
func (c Category) Description() string {
	return categoryDescriptions[c]
}

// Valid reports whether c belongs to the category set
func (c Category) Valid() bool {
	_, ok := categoryDescriptions[c]
	return ok
}

// ParseCategory matches s exactly (case-sensitive) against the category set
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if !c.Valid() {
		return "", false
	}
	return c, true
}

// ClassificationRequest carries the free-text fields sent to the model
type ClassificationRequest struct {
	Subject string
	Sender  string
	Snippet string
}

// MessageMetadata is the minimal view of a mailbox message
type MessageMetadata struct {
	ID      string
	Subject string
	Sender  string
	Snippet string
	Unread  bool
}

// Request converts the metadata into a classification request
func (m *MessageMetadata) Request() ClassificationRequest {
	return ClassificationRequest{
		Subject: m.Subject,
		Sender:  m.Sender,
		Snippet: m.Snippet,
	}
}

// UsageRecord is the per-user daily counter.
// DailyProcessedCount only counts when LastProcessedDate is today.
type UsageRecord struct {
	UserID              string
	DailyProcessedCount int
	LastProcessedDate   string
}

// CountOn returns the effective count for the given date
func (r *UsageRecord) CountOn(date string) int {
	if r == nil || r.LastProcessedDate != date {
		return 0
	}
	return r.DailyProcessedCount
}

// BatchResult is the tally produced by one batch run
type BatchResult struct {
	CategoryCounts map[Category]int `json:"categories"`
	TotalProcessed int              `json:"total_processed"`
	UnreadCount    int              `json:"unread_count"`
}

// NewBatchResult returns a result with every category present at zero
func NewBatchResult() *BatchResult {
	counts := make(map[Category]int, len(categories))
	for _, c := range categories {
		counts[c] = 0
	}
	return &BatchResult{CategoryCounts: counts}
}

// UsageSummary describes today's consumption for a user
type UsageSummary struct {
	DailyProcessed int       `json:"daily_processed"`
	DailyLimit     int       `json:"daily_limit"`
	Remaining      int       `json:"remaining"`
	AsOf           time.Time `json:"-"`
}
