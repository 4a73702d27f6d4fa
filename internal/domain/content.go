package domain

import "time"

// Contact is a message left through the public contact form.
type Contact struct {
	ID        int64     `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"`
	Email     string    `json:"email"     db:"email"`
	Phone     string    `json:"phone"     db:"phone"`
	Company   string    `json:"company"   db:"company"`
	Message   string    `json:"message"   db:"message"`
	Status    string    `json:"status"    db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Contact status constants.
const (
	ContactStatusNew      = "new"
	ContactStatusRead     = "read"
	ContactStatusReplied  = "replied"
	ContactStatusArchived = "archived"
)

// ValidContactStatus reports whether s is a known contact status.
func ValidContactStatus(s string) bool {
	switch s {
	case ContactStatusNew, ContactStatusRead, ContactStatusReplied, ContactStatusArchived:
		return true
	}
	return false
}

// Consultation is a request for a consultation call.
type Consultation struct {
	ID            int64      `json:"id"            db:"id"`
	Name          string     `json:"name"          db:"name"`
	Email         string     `json:"email"         db:"email"`
	Phone         string     `json:"phone"         db:"phone"`
	Company       string     `json:"company"       db:"company"`
	Service       string     `json:"service"       db:"service"`
	Budget        string     `json:"budget"        db:"budget"`
	Timeline      string     `json:"timeline"      db:"timeline"`
	Message       string     `json:"message"       db:"message"`
	PreferredDate *time.Time `json:"preferredDate" db:"preferred_date"`
	Status        string     `json:"status"        db:"status"`
	CreatedAt     time.Time  `json:"createdAt"     db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt"     db:"updated_at"`
}

// Consultation status constants.
const (
	ConsultationStatusPending   = "pending"
	ConsultationStatusScheduled = "scheduled"
	ConsultationStatusCompleted = "completed"
	ConsultationStatusCancelled = "cancelled"
)

// ValidConsultationStatus reports whether s is a known consultation status.
func ValidConsultationStatus(s string) bool {
	switch s {
	case ConsultationStatusPending, ConsultationStatusScheduled, ConsultationStatusCompleted, ConsultationStatusCancelled:
		return true
	}
	return false
}

// NewsletterSubscriber is an address signed up for the newsletter.
type NewsletterSubscriber struct {
	ID             int64      `json:"id"             db:"id"`
	Email          string     `json:"email"          db:"email"`
	IsActive       bool       `json:"isActive"       db:"is_active"`
	SubscribedAt   time.Time  `json:"subscribedAt"   db:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt" db:"unsubscribed_at"`
}

// DashboardStats backs the admin analytics page.
type DashboardStats struct {
	TotalUsers              int64 `json:"totalUsers"`
	ActiveUsers             int64 `json:"activeUsers"`
	TotalContacts           int64 `json:"totalContacts"`
	NewContacts             int64 `json:"newContacts"`
	TotalConsultations      int64 `json:"totalConsultations"`
	PendingConsultations    int64 `json:"pendingConsultations"`
	ActiveSubscribers       int64 `json:"activeSubscribers"`
	ContactsLast30Days      int64 `json:"contactsLast30Days"`
	ConsultationsLast30Days int64 `json:"consultationsLast30Days"`
}
