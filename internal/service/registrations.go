package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/metrics"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/ratelimit"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegistrationService orchestrates RSVP submissions and exports.
type RegistrationService struct {
	registrations *repository.Store[model.Registration]
	limiter       *ratelimit.Limiter
	log           *zap.Logger
	now           func() time.Time
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(
	registrations *repository.Store[model.Registration],
	limiter *ratelimit.Limiter,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{registrations: registrations, limiter: limiter, log: log, now: time.Now}
}

// CreateRegistration checks the client's rate limit, validates fields and
// stores the registration. The rate limit is consumed before validation, so
// rejected submissions still count against the client.
func (s *RegistrationService) CreateRegistration(ctx context.Context, f model.RegistrationFields, clientID string) (string, error) {
	decision, err := s.limiter.Allow(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}
	if !decision.Allowed {
		s.log.Warn("registration rate limited", zap.String("client_id", clientID))
		return "", &RateLimitError{Decision: decision}
	}

	f.Email = strings.TrimSpace(f.Email)
	if strings.TrimSpace(f.EventID) == "" || strings.TrimSpace(f.FirstName) == "" ||
		strings.TrimSpace(f.LastName) == "" || f.Attending == "" {
		return "", invalid("missing required fields")
	}
	if !f.Attending.Valid() {
		return "", invalid("attending must be Yes or No")
	}
	if f.Email != "" && !isValidEmail(f.Email) {
		return "", invalid("email is not a valid address")
	}

	reg := model.Registration{
		ID:        uuid.New().String(),
		EventID:   f.EventID,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Attending: f.Attending,
		Email:     f.Email,
		Phone:     strings.TrimSpace(f.Phone),
		CreatedAt: s.now().UTC(),
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		return "", fmt.Errorf("create registration: %w", err)
	}
	metrics.RegistrationsCreated.WithLabelValues(string(reg.Attending)).Inc()
	s.log.Info("registration created",
		zap.String("registration_id", reg.ID),
		zap.String("event_id", reg.EventID),
	)
	return reg.ID, nil
}

// ListRegistrations returns registrations in submission order, limited to
// eventID when it is non-empty.
func (s *RegistrationService) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	regs, err := s.registrations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if eventID == "" {
		return regs, nil
	}
	filtered := regs[:0]
	for _, r := range regs {
		if r.EventID == eventID {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

var csvHeader = []string{"First Name", "Last Name", "Attending", "Email", "Phone", "Created At"}

// ExportRegistrationsCSV writes the registrations ListRegistrations would
// return to w as CSV.
func (s *RegistrationService) ExportRegistrationsCSV(ctx context.Context, eventID string, w io.Writer) error {
	regs, err := s.ListRegistrations(ctx, eventID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range regs {
		row := []string{
			r.FirstName,
			r.LastName,
			string(r.Attending),
			r.Email,
			r.Phone,
			r.CreatedAt.UTC().Format(DateLayout),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
