package store

import (
	"context"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
)

// --- Contacts ---

// CreateContact stores a contact form submission with status "new".
func (s *PostgresStore) CreateContact(ctx context.Context, c *domain.Contact) (*domain.Contact, error) {
	query := `INSERT INTO contacts (name, email, phone, company, message, status)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, name, email, phone, company, message, status, created_at`

	var out domain.Contact
	err := s.db.QueryRowContext(ctx, query,
		c.Name, c.Email, c.Phone, c.Company, c.Message, domain.ContactStatusNew,
	).Scan(&out.ID, &out.Name, &out.Email, &out.Phone, &out.Company, &out.Message, &out.Status, &out.CreatedAt)
	if err != nil {
		return nil, storageErr("create contact", err)
	}
	return &out, nil
}

// ListContacts returns contacts newest first, optionally filtered by status.
func (s *PostgresStore) ListContacts(ctx context.Context, status string) ([]domain.Contact, error) {
	query := `SELECT id, name, email, phone, company, message, status, created_at FROM contacts`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list contacts", err)
	}
	defer rows.Close()

	contacts := []domain.Contact{}
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Message, &c.Status, &c.CreatedAt); err != nil {
			return nil, storageErr("scan contact", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list contacts", err)
	}
	return contacts, nil
}

// UpdateContactStatus sets the status of a contact.
func (s *PostgresStore) UpdateContactStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE contacts SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return storageErr("update contact", err)
	}
	return requireAffected(res, port.ErrNotFound)
}

// DeleteContact removes a contact.
func (s *PostgresStore) DeleteContact(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete contact", err)
	}
	return requireAffected(res, port.ErrNotFound)
}

// --- Consultations ---

const consultationColumns = `id, name, email, phone, company, service, budget, timeline, message,
	preferred_date, status, created_at, updated_at`

func scanConsultation(row rowScanner) (*domain.Consultation, error) {
	var c domain.Consultation
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Service, &c.Budget, &c.Timeline,
		&c.Message, &c.PreferredDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConsultation stores a consultation request with status "pending".
func (s *PostgresStore) CreateConsultation(ctx context.Context, c *domain.Consultation) (*domain.Consultation, error) {
	query := `INSERT INTO consultations (name, email, phone, company, service, budget, timeline, message, preferred_date, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING ` + consultationColumns

	out, err := scanConsultation(s.db.QueryRowContext(ctx, query,
		c.Name, c.Email, c.Phone, c.Company, c.Service, c.Budget, c.Timeline, c.Message,
		c.PreferredDate, domain.ConsultationStatusPending,
	))
	if err != nil {
		return nil, storageErr("create consultation", err)
	}
	return out, nil
}

// ListConsultations returns consultations newest first, optionally filtered by status.
func (s *PostgresStore) ListConsultations(ctx context.Context, status string) ([]domain.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list consultations", err)
	}
	defer rows.Close()

	out := []domain.Consultation{}
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, storageErr("scan consultation", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list consultations", err)
	}
	return out, nil
}

// UpdateConsultationStatus sets the status of a consultation.
func (s *PostgresStore) UpdateConsultationStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE consultations SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return storageErr("update consultation", err)
	}
	return requireAffected(res, port.ErrNotFound)
}

// --- Newsletter ---

// Subscribe adds email to the newsletter or re-activates a previous subscription.
func (s *PostgresStore) Subscribe(ctx context.Context, email string) (*domain.NewsletterSubscriber, error) {
	query := `INSERT INTO newsletter_subscribers (email) VALUES ($1)
	          ON CONFLICT (email) DO UPDATE SET
	              is_active = TRUE,
	              unsubscribed_at = NULL,
	              subscribed_at = CASE WHEN newsletter_subscribers.is_active
	                                   THEN newsletter_subscribers.subscribed_at ELSE NOW() END
	          RETURNING id, email, is_active, subscribed_at, unsubscribed_at`

	var sub domain.NewsletterSubscriber
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&sub.ID, &sub.Email, &sub.IsActive, &sub.SubscribedAt, &sub.UnsubscribedAt)
	if err != nil {
		return nil, storageErr("subscribe", err)
	}
	return &sub, nil
}

// Unsubscribe deactivates the subscription of email.
func (s *PostgresStore) Unsubscribe(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE newsletter_subscribers SET is_active = FALSE, unsubscribed_at = NOW()
		 WHERE email = $1 AND is_active`, email)
	if err != nil {
		return storageErr("unsubscribe", err)
	}
	return requireAffected(res, port.ErrNotFound)
}

// UnsubscribeByID deactivates a subscription from the admin dashboard.
func (s *PostgresStore) UnsubscribeByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE newsletter_subscribers SET is_active = FALSE, unsubscribed_at = NOW()
		 WHERE id = $1 AND is_active`, id)
	if err != nil {
		return storageErr("unsubscribe", err)
	}
	return requireAffected(res, port.ErrNotFound)
}

// ListSubscribers returns subscribers newest first.
func (s *PostgresStore) ListSubscribers(ctx context.Context, activeOnly bool) ([]domain.NewsletterSubscriber, error) {
	query := `SELECT id, email, is_active, subscribed_at, unsubscribed_at FROM newsletter_subscribers`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY subscribed_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("list subscribers", err)
	}
	defer rows.Close()

	subs := []domain.NewsletterSubscriber{}
	for rows.Next() {
		var sub domain.NewsletterSubscriber
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.IsActive, &sub.SubscribedAt, &sub.UnsubscribedAt); err != nil {
			return nil, storageErr("scan subscriber", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list subscribers", err)
	}
	return subs, nil
}

// --- Analytics ---

// DashboardStats aggregates the counters shown on the admin dashboard.
func (s *PostgresStore) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	query := `SELECT
	    (SELECT COUNT(*) FROM users),
	    (SELECT COUNT(*) FROM users WHERE is_active),
	    (SELECT COUNT(*) FROM contacts),
	    (SELECT COUNT(*) FROM contacts WHERE status = 'new'),
	    (SELECT COUNT(*) FROM consultations),
	    (SELECT COUNT(*) FROM consultations WHERE status = 'pending'),
	    (SELECT COUNT(*) FROM newsletter_subscribers WHERE is_active),
	    (SELECT COUNT(*) FROM contacts WHERE created_at > NOW() - INTERVAL '30 days'),
	    (SELECT COUNT(*) FROM consultations WHERE created_at > NOW() - INTERVAL '30 days')`

	var st domain.DashboardStats
	err := s.db.QueryRowContext(ctx, query).Scan(
		&st.TotalUsers, &st.ActiveUsers,
		&st.TotalContacts, &st.NewContacts,
		&st.TotalConsultations, &st.PendingConsultations,
		&st.ActiveSubscribers,
		&st.ContactsLast30Days, &st.ConsultationsLast30Days,
	)
	if err != nil {
		return nil, storageErr("dashboard stats", err)
	}
	return &st, nil
}
