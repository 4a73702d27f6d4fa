package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
)

// Content is an in-memory store for contacts, consultations, newsletter
// subscribers and audit logs.
type Content struct {
	mu            sync.Mutex
	contacts      []domain.Contact
	consultations []domain.Consultation
	subscribers   []domain.NewsletterSubscriber
	audit         []domain.AuditLog

	Fail error
}

// NewContent returns an empty content store.
func NewContent() *Content {
	return &Content{}
}

func (s *Content) storageErr() error {
	if s.Fail != nil {
		return fmt.Errorf("memory content: %w: %w", port.ErrStorageUnavailable, s.Fail)
	}
	return nil
}

func (s *Content) CreateContact(_ context.Context, c *domain.Contact) (*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	cp := *c
	cp.ID = int64(len(s.contacts) + 1)
	if cp.Status == "" {
		cp.Status = domain.ContactStatusNew
	}
	cp.CreatedAt = time.Now()
	s.contacts = append(s.contacts, cp)
	return &cp, nil
}

func (s *Content) ListContacts(_ context.Context, status string) ([]domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	out := []domain.Contact{}
	for _, c := range s.contacts {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Content) UpdateContactStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return err
	}
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			s.contacts[i].Status = status
			return nil
		}
	}
	return port.ErrNotFound
}

func (s *Content) DeleteContact(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return err
	}
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
			return nil
		}
	}
	return port.ErrNotFound
}

func (s *Content) CreateConsultation(_ context.Context, c *domain.Consultation) (*domain.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	cp := *c
	cp.ID = int64(len(s.consultations) + 1)
	if cp.Status == "" {
		cp.Status = domain.ConsultationStatusPending
	}
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.consultations = append(s.consultations, cp)
	return &cp, nil
}

func (s *Content) ListConsultations(_ context.Context, status string) ([]domain.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	out := []domain.Consultation{}
	for _, c := range s.consultations {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Content) UpdateConsultationStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return err
	}
	for i := range s.consultations {
		if s.consultations[i].ID == id {
			s.consultations[i].Status = status
			s.consultations[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return port.ErrNotFound
}

func (s *Content) Subscribe(_ context.Context, email string) (*domain.NewsletterSubscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	for i := range s.subscribers {
		if s.subscribers[i].Email == email {
			s.subscribers[i].IsActive = true
			s.subscribers[i].UnsubscribedAt = nil
			cp := s.subscribers[i]
			return &cp, nil
		}
	}
	sub := domain.NewsletterSubscriber{
		ID:           int64(len(s.subscribers) + 1),
		Email:        email,
		IsActive:     true,
		SubscribedAt: time.Now(),
	}
	s.subscribers = append(s.subscribers, sub)
	return &sub, nil
}

func (s *Content) unsubscribe(match func(domain.NewsletterSubscriber) bool) error {
	if err := s.storageErr(); err != nil {
		return err
	}
	for i := range s.subscribers {
		if match(s.subscribers[i]) && s.subscribers[i].IsActive {
			now := time.Now()
			s.subscribers[i].IsActive = false
			s.subscribers[i].UnsubscribedAt = &now
			return nil
		}
	}
	return port.ErrNotFound
}

func (s *Content) Unsubscribe(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribe(func(n domain.NewsletterSubscriber) bool { return n.Email == email })
}

func (s *Content) UnsubscribeByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribe(func(n domain.NewsletterSubscriber) bool { return n.ID == id })
}

func (s *Content) ListSubscribers(_ context.Context, activeOnly bool) ([]domain.NewsletterSubscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	out := []domain.NewsletterSubscriber{}
	for _, n := range s.subscribers {
		if !activeOnly || n.IsActive {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Content) DashboardStats(_ context.Context) (*domain.DashboardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	st := &domain.DashboardStats{
		TotalContacts:      int64(len(s.contacts)),
		TotalConsultations: int64(len(s.consultations)),
	}
	for _, c := range s.contacts {
		if c.Status == domain.ContactStatusNew {
			st.NewContacts++
		}
	}
	for _, c := range s.consultations {
		if c.Status == domain.ConsultationStatusPending {
			st.PendingConsultations++
		}
	}
	for _, n := range s.subscribers {
		if n.IsActive {
			st.ActiveSubscribers++
		}
	}
	st.ContactsLast30Days = st.TotalContacts
	st.ConsultationsLast30Days = st.TotalConsultations
	return st, nil
}

func (s *Content) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, domain.AuditLog{
		ID:         fmt.Sprint(len(s.audit) + 1),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (s *Content) ListAuditLogs(_ context.Context, limit int, action string) ([]domain.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storageErr(); err != nil {
		return nil, err
	}
	out := []domain.AuditLog{}
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if action == "" || s.audit[i].Action == action {
			out = append(out, s.audit[i])
		}
	}
	return out, nil
}
