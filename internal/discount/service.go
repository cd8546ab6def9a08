package discount

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"ws-registration/internal/discount/db"
	"ws-registration/internal/logger"
	"ws-registration/internal/models"
	"ws-registration/internal/utils"
)

var (
	ErrAlreadyUsed   = db.ErrAlreadyUsed
	ErrUsageNotFound = db.ErrUsageNotFound
	ErrInvalidInput  = errors.New("invalid input")
)

type DBLayer interface {
	GetUsageByEmail(ctx context.Context, email string) (*models.MemberDiscountUsage, error)
	InsertUsageIfAbsent(ctx context.Context, usage models.MemberDiscountUsage) error
	DeleteUsage(ctx context.Context, email string) error
	InsertReset(ctx context.Context, reset models.MemberDiscountReset) error
	GetUsageStats(ctx context.Context, filters db.UsageFilters) (*db.UsageStats, error)
}

type Publisher interface {
	PublishDiscountUsed(usage models.MemberDiscountUsage) error
	PublishDiscountReset(reset models.MemberDiscountReset) error
}

// Service enforces "each member uses the one-time discount exactly once",
// keyed by normalized email.
type Service struct {
	DB     DBLayer
	Kafka  Publisher
	Logger *logger.Logger
}

func NewService(dbLayer DBLayer, publisher Publisher, log *logger.Logger) *Service {
	return &Service{DB: dbLayer, Kafka: publisher, Logger: log}
}

// UsageCheck is the result of CheckMemberDiscountUsage.
type UsageCheck struct {
	HasUsedDiscount bool                        `json:"has_used_discount"`
	UsageRecord     *models.MemberDiscountUsage `json:"usage_record,omitempty"`
}

// Eligibility is the yes/no decision consumed by checkout before pricing.
type Eligibility struct {
	Eligible    bool                        `json:"eligible"`
	Reason      string                      `json:"reason,omitempty"`
	UsageRecord *models.MemberDiscountUsage `json:"usage_record,omitempty"`
}

// RecordRequest carries everything stored on a successful discount use.
type RecordRequest struct {
	Email               string
	CustomerID          string
	SessionID           string
	PaymentIntentID     string
	CityID              string
	TicketType          models.Tier
	Quantity            int
	DiscountAmountCents int64
	OriginalAmountCents int64
	FinalAmountCents    int64
}

// CheckMemberDiscountUsage reports whether the email has consumed its
// discount. On a store error it fails CLOSED: the member is reported as
// having used the discount. This is a deliberate safety bias — a storage
// fault must never hand out a duplicate discount — and not a bug to fix.
func (s *Service) CheckMemberDiscountUsage(ctx context.Context, email string) (*UsageCheck, error) {
	normalized, err := normalizeAndValidateEmail(email)
	if err != nil {
		return nil, err
	}

	usage, err := s.DB.GetUsageByEmail(ctx, normalized)
	if err != nil {
		s.Logger.Error("DISCOUNT", fmt.Sprintf("usage lookup failed for %s, failing closed: %v", normalized, err))
		return &UsageCheck{HasUsedDiscount: true}, nil
	}

	return &UsageCheck{
		HasUsedDiscount: usage != nil,
		UsageRecord:     usage,
	}, nil
}

// ValidateMemberDiscountEligibility wraps the usage check in the decision the
// checkout flow consumes before pricing. Both GA and VIP are eligible for
// their tier-specific percentage while the discount is unused.
func (s *Service) ValidateMemberDiscountEligibility(ctx context.Context, email string, ticketType models.Tier) (*Eligibility, error) {
	if _, err := models.ParseTier(string(ticketType)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	check, err := s.CheckMemberDiscountUsage(ctx, email)
	if err != nil {
		return nil, err
	}

	if check.HasUsedDiscount {
		return &Eligibility{
			Eligible:    false,
			Reason:      "member discount already used",
			UsageRecord: check.UsageRecord,
		}, nil
	}

	return &Eligibility{Eligible: true}, nil
}

// RecordMemberDiscountUsage stores the usage record with insert-if-absent
// semantics: a second call for the same email is rejected with ErrAlreadyUsed
// and never overwrites the first record. The eligibility re-check happens
// inside the store's conditional insert, so the race window is as tight as the
// database allows.
func (s *Service) RecordMemberDiscountUsage(ctx context.Context, req RecordRequest) (*models.MemberDiscountUsage, error) {
	normalized, err := normalizeAndValidateEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseTier(string(req.TicketType)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if req.SessionID == "" || req.CityID == "" || req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: session id, city id and a positive quantity are required", ErrInvalidInput)
	}
	if req.DiscountAmountCents < 0 || req.FinalAmountCents < 0 || req.OriginalAmountCents < req.DiscountAmountCents {
		return nil, fmt.Errorf("%w: inconsistent amounts", ErrInvalidInput)
	}

	usage := models.MemberDiscountUsage{
		Email:               normalized,
		ID:                  utils.GenerateUsageID(),
		CustomerID:          req.CustomerID,
		SessionID:           req.SessionID,
		PaymentIntentID:     req.PaymentIntentID,
		CityID:              req.CityID,
		TicketType:          string(req.TicketType),
		Quantity:            req.Quantity,
		DiscountAmountCents: req.DiscountAmountCents,
		OriginalAmountCents: req.OriginalAmountCents,
		FinalAmountCents:    req.FinalAmountCents,
		UsedAt:              time.Now(),
	}

	if err := s.DB.InsertUsageIfAbsent(ctx, usage); err != nil {
		if errors.Is(err, ErrAlreadyUsed) {
			s.Logger.LogDiscount("RECORD_REJECTED", normalized, "usage already exists")
		}
		return nil, err
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishDiscountUsed(usage); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish discount used event: %v", err))
		}
	}

	s.Logger.LogDiscount("RECORD", normalized, fmt.Sprintf("city=%s tier=%s discount=%dc", usage.CityID, usage.TicketType, usage.DiscountAmountCents))
	return &usage, nil
}

// GetMemberDiscountUsageStats is a read-only reporting projection.
func (s *Service) GetMemberDiscountUsageStats(ctx context.Context, filters db.UsageFilters) (*db.UsageStats, error) {
	return s.DB.GetUsageStats(ctx, filters)
}

// ResetMemberDiscountUsage deletes a member's usage record so the discount
// can be used again. Every reset writes an audit row with the operator's
// reason; an empty reason is rejected.
func (s *Service) ResetMemberDiscountUsage(ctx context.Context, email, authorizedBy, reason string) error {
	normalized, err := normalizeAndValidateEmail(email)
	if err != nil {
		return err
	}
	if authorizedBy == "" || reason == "" {
		return fmt.Errorf("%w: authorized_by and reason are required for a reset", ErrInvalidInput)
	}

	if err := s.DB.DeleteUsage(ctx, normalized); err != nil {
		return err
	}

	reset := models.MemberDiscountReset{
		ID:           utils.GenerateResetID(),
		Email:        normalized,
		Reason:       reason,
		AuthorizedBy: authorizedBy,
		ResetAt:      time.Now(),
	}
	if err := s.DB.InsertReset(ctx, reset); err != nil {
		s.Logger.Error("DISCOUNT", fmt.Sprintf("failed to write reset audit row for %s: %v", normalized, err))
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishDiscountReset(reset); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish discount reset event: %v", err))
		}
	}

	s.Logger.Warn("DISCOUNT", fmt.Sprintf("[RESET] %s - usage record deleted by %s (%s)", normalized, authorizedBy, reason))
	return nil
}

func normalizeAndValidateEmail(email string) (string, error) {
	normalized := models.NormalizeEmail(email)
	if normalized == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", fmt.Errorf("%w: invalid email %q", ErrInvalidInput, email)
	}
	return normalized, nil
}
