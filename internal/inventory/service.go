package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ws-registration/internal/inventory/db"
	"ws-registration/internal/logger"
	"ws-registration/internal/models"
	"ws-registration/internal/utils"
)

// Sentinel errors surfaced to callers. Checkout branches on these, so they
// must stay distinguishable from plain store faults.
var (
	ErrInsufficientInventory = db.ErrInsufficientInventory
	ErrCityNotFound          = db.ErrCityNotFound
	ErrInvalidInput          = errors.New("invalid input")
)

type DBLayer interface {
	GetStatus(ctx context.Context, cityID string) (*models.InventoryStatus, error)
	GetAllStatuses(ctx context.Context) ([]models.InventoryStatus, error)
	SeedCity(ctx context.Context, status models.InventoryStatus) error
	Decrement(ctx context.Context, cityID string, tier models.Tier, quantity int) (*models.InventoryStatus, error)
	Expand(ctx context.Context, cityID string, tier models.Tier, additionalSpots int) (*models.InventoryStatus, error)
	ExpandPublic(ctx context.Context, cityID string, tier models.Tier, additionalSpots int) (*models.InventoryStatus, error)
	Reset(ctx context.Context, cityID string) (*models.InventoryStatus, error)
	InsertTransaction(ctx context.Context, txn models.InventoryTransaction) error
	InsertExpansion(ctx context.Context, exp models.InventoryExpansion) error
	GetTransactions(ctx context.Context, cityID string) ([]models.InventoryTransaction, error)
	GetExpansions(ctx context.Context, cityID string) ([]models.InventoryExpansion, error)
}

type Publisher interface {
	PublishSaleRecorded(txn models.InventoryTransaction) error
	PublishInventoryExpanded(exp models.InventoryExpansion) error
	PublishInventoryReset(txn models.InventoryTransaction) error
}

// Service is the inventory ledger: the single source of truth for per-city,
// per-tier availability. All mutations append an audit transaction.
type Service struct {
	DB     DBLayer
	Kafka  Publisher
	Logger *logger.Logger
}

func NewService(dbLayer DBLayer, publisher Publisher, log *logger.Logger) *Service {
	return &Service{DB: dbLayer, Kafka: publisher, Logger: log}
}

// CheckResult answers "is there room?" against the actual (true) limits.
type CheckResult struct {
	Available bool `json:"available"`
	Remaining int  `json:"remaining"`
}

// CityOpResult is the per-city outcome of a bulk operation.
type CityOpResult struct {
	CityID  string `json:"city_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkResult collects per-city outcomes. Success is true only when every city
// succeeded; one city failing never aborts the rest.
type BulkResult struct {
	Success      bool           `json:"success"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	Results      []CityOpResult `json:"results"`
}

// GetAllInventoryStatuses returns the current status of every known city.
func (s *Service) GetAllInventoryStatuses(ctx context.Context) ([]models.InventoryStatus, error) {
	return s.DB.GetAllStatuses(ctx)
}

// SeedCityInventory creates a city with its initial limits. An existing city is
// left untouched; re-seeding is not an update path.
func (s *Service) SeedCityInventory(ctx context.Context, cityID string, publicGA, publicVIP, actualGA, actualVIP int) (*models.InventoryStatus, error) {
	if cityID == "" {
		return nil, fmt.Errorf("%w: city id is required", ErrInvalidInput)
	}
	if publicGA < 0 || publicVIP < 0 || actualGA < 0 || actualVIP < 0 {
		return nil, fmt.Errorf("%w: limits must be non-negative", ErrInvalidInput)
	}
	if publicGA > actualGA || publicVIP > actualVIP {
		return nil, fmt.Errorf("%w: public limits cannot exceed actual limits", ErrInvalidInput)
	}

	err := s.DB.SeedCity(ctx, models.InventoryStatus{
		CityID:    cityID,
		PublicGA:  publicGA,
		PublicVIP: publicVIP,
		ActualGA:  actualGA,
		ActualVIP: actualVIP,
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogInventory("SEED", cityID, fmt.Sprintf("public=%d/%d actual=%d/%d", publicGA, publicVIP, actualGA, actualVIP))
	return s.DB.GetStatus(ctx, cityID)
}

// CheckInventoryStatus is a read-only availability check against actual
// capacity. Callers must not treat a positive answer as a reservation; the
// decrement re-checks atomically.
func (s *Service) CheckInventoryStatus(ctx context.Context, cityID string, tier models.Tier, requestedQuantity int) (*CheckResult, error) {
	if cityID == "" || requestedQuantity <= 0 {
		return nil, fmt.Errorf("%w: city id and a positive quantity are required", ErrInvalidInput)
	}
	if _, err := models.ParseTier(string(tier)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	status, err := s.DB.GetStatus(ctx, cityID)
	if err != nil {
		return nil, err
	}

	remaining := status.ActualAvailable(tier)
	return &CheckResult{
		Available: remaining >= requestedQuantity,
		Remaining: remaining,
	}, nil
}

// DecrementInventory records a sale. The store performs the check-and-increment
// as one conditional update, so concurrent calls for the last slot cannot both
// succeed. Over-capacity requests fail with ErrInsufficientInventory and leave
// sold counts unchanged.
func (s *Service) DecrementInventory(ctx context.Context, cityID string, tier models.Tier, quantity int, meta models.TransactionMetadata) (*models.InventoryStatus, error) {
	if cityID == "" || quantity <= 0 {
		return nil, fmt.Errorf("%w: city id and a positive quantity are required", ErrInvalidInput)
	}
	if _, err := models.ParseTier(string(tier)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	status, err := s.DB.Decrement(ctx, cityID, tier, quantity)
	if err != nil {
		if errors.Is(err, ErrInsufficientInventory) {
			s.Logger.LogInventory("DECREMENT_REJECTED", cityID, fmt.Sprintf("tier=%s qty=%d: insufficient inventory", tier, quantity))
		}
		return nil, err
	}

	txn := models.InventoryTransaction{
		ID:              utils.GenerateTransactionID(),
		CityID:          cityID,
		Tier:            string(tier),
		Quantity:        quantity,
		Operation:       models.OperationDecrement,
		Severity:        models.SeverityInfo,
		PaymentIntentID: meta.PaymentIntentID,
		SessionID:       meta.SessionID,
		AdminUserID:     meta.AdminUserID,
		Reason:          meta.Reason,
		CreatedAt:       time.Now(),
	}
	if err := s.DB.InsertTransaction(ctx, txn); err != nil {
		// The sale itself is committed; a missing audit row is logged loudly
		// rather than unwinding the sale.
		s.Logger.Error("INVENTORY", fmt.Sprintf("failed to write decrement transaction for %s: %v", cityID, err))
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishSaleRecorded(txn); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish sale event: %v", err))
		}
	}

	s.Logger.LogInventory("DECREMENT", cityID, fmt.Sprintf("tier=%s qty=%d sold=%d remaining=%d", tier, quantity, status.Sold(tier), status.ActualAvailable(tier)))
	return status, nil
}

// ExpandInventory raises the actual limit for a city/tier. The public limit is
// deliberately left alone; advertising the extra capacity is a separate,
// explicit action (ExpandPublicInventory).
func (s *Service) ExpandInventory(ctx context.Context, cityID string, tier models.Tier, additionalSpots int, authorizedBy, reason string) (*models.InventoryStatus, error) {
	if cityID == "" || additionalSpots <= 0 {
		return nil, fmt.Errorf("%w: city id and a positive spot count are required", ErrInvalidInput)
	}
	if _, err := models.ParseTier(string(tier)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if authorizedBy == "" {
		return nil, fmt.Errorf("%w: authorized_by is required", ErrInvalidInput)
	}

	status, err := s.DB.Expand(ctx, cityID, tier, additionalSpots)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	exp := models.InventoryExpansion{
		ID:              utils.GenerateExpansionID(),
		CityID:          cityID,
		Tier:            string(tier),
		AdditionalSpots: additionalSpots,
		Reason:          reason,
		AuthorizedBy:    authorizedBy,
		CreatedAt:       now,
	}
	if err := s.DB.InsertExpansion(ctx, exp); err != nil {
		s.Logger.Error("INVENTORY", fmt.Sprintf("failed to write expansion record for %s: %v", cityID, err))
	}

	txn := models.InventoryTransaction{
		ID:          utils.GenerateTransactionID(),
		CityID:      cityID,
		Tier:        string(tier),
		Quantity:    additionalSpots,
		Operation:   models.OperationExpand,
		Severity:    models.SeverityInfo,
		AdminUserID: authorizedBy,
		Reason:      reason,
		CreatedAt:   now,
	}
	if err := s.DB.InsertTransaction(ctx, txn); err != nil {
		s.Logger.Error("INVENTORY", fmt.Sprintf("failed to write expand transaction for %s: %v", cityID, err))
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishInventoryExpanded(exp); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish expansion event: %v", err))
		}
	}

	s.Logger.LogInventory("EXPAND", cityID, fmt.Sprintf("tier=%s +%d by %s (%s)", tier, additionalSpots, authorizedBy, reason))
	return status, nil
}

// ExpandPublicInventory raises the advertised limit for a city/tier, capped at
// the actual limit.
func (s *Service) ExpandPublicInventory(ctx context.Context, cityID string, tier models.Tier, additionalSpots int, authorizedBy, reason string) (*models.InventoryStatus, error) {
	if cityID == "" || additionalSpots <= 0 {
		return nil, fmt.Errorf("%w: city id and a positive spot count are required", ErrInvalidInput)
	}
	if _, err := models.ParseTier(string(tier)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if authorizedBy == "" {
		return nil, fmt.Errorf("%w: authorized_by is required", ErrInvalidInput)
	}

	status, err := s.DB.ExpandPublic(ctx, cityID, tier, additionalSpots)
	if err != nil {
		return nil, err
	}

	s.Logger.LogInventory("EXPAND_PUBLIC", cityID, fmt.Sprintf("tier=%s +%d by %s (%s)", tier, additionalSpots, authorizedBy, reason))
	return status, nil
}

// ResetInventory zeroes the sold counters for a city. This is a destructive
// override, so the audit transaction is written at critical severity and a
// non-empty reason is mandatory.
func (s *Service) ResetInventory(ctx context.Context, cityID, authorizedBy, reason string) (*models.InventoryStatus, error) {
	if cityID == "" {
		return nil, fmt.Errorf("%w: city id is required", ErrInvalidInput)
	}
	if authorizedBy == "" || reason == "" {
		return nil, fmt.Errorf("%w: authorized_by and reason are required for a reset", ErrInvalidInput)
	}

	status, err := s.DB.Reset(ctx, cityID)
	if err != nil {
		return nil, err
	}

	txn := models.InventoryTransaction{
		ID:          utils.GenerateTransactionID(),
		CityID:      cityID,
		Tier:        string(models.TierGA) + "+" + string(models.TierVIP),
		Quantity:    0,
		Operation:   models.OperationReset,
		Severity:    models.SeverityCritical,
		AdminUserID: authorizedBy,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	if err := s.DB.InsertTransaction(ctx, txn); err != nil {
		s.Logger.Error("INVENTORY", fmt.Sprintf("failed to write reset transaction for %s: %v", cityID, err))
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishInventoryReset(txn); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish reset event: %v", err))
		}
	}

	s.Logger.Warn("INVENTORY", fmt.Sprintf("[RESET] %s - sold counters zeroed by %s (%s)", cityID, authorizedBy, reason))
	return status, nil
}

// GetInventoryTransactions returns the audit log, newest first. Empty cityID
// means all cities.
func (s *Service) GetInventoryTransactions(ctx context.Context, cityID string) ([]models.InventoryTransaction, error) {
	return s.DB.GetTransactions(ctx, cityID)
}

// GetInventoryExpansions returns expansion records, newest first. Empty cityID
// means all cities.
func (s *Service) GetInventoryExpansions(ctx context.Context, cityID string) ([]models.InventoryExpansion, error) {
	return s.DB.GetExpansions(ctx, cityID)
}

// BulkExpandInventory applies ExpandInventory across cities, isolating
// per-city failures.
func (s *Service) BulkExpandInventory(ctx context.Context, cityIDs []string, tier models.Tier, additionalSpots int, authorizedBy, reason string) BulkResult {
	result := BulkResult{Results: make([]CityOpResult, 0, len(cityIDs))}
	for _, cityID := range cityIDs {
		_, err := s.ExpandInventory(ctx, cityID, tier, additionalSpots, authorizedBy, reason)
		if err != nil {
			result.FailureCount++
			result.Results = append(result.Results, CityOpResult{CityID: cityID, Success: false, Error: err.Error()})
			continue
		}
		result.SuccessCount++
		result.Results = append(result.Results, CityOpResult{CityID: cityID, Success: true})
	}
	result.Success = result.FailureCount == 0
	return result
}

// BulkResetInventory applies ResetInventory across cities, isolating per-city
// failures.
func (s *Service) BulkResetInventory(ctx context.Context, cityIDs []string, authorizedBy, reason string) BulkResult {
	result := BulkResult{Results: make([]CityOpResult, 0, len(cityIDs))}
	for _, cityID := range cityIDs {
		_, err := s.ResetInventory(ctx, cityID, authorizedBy, reason)
		if err != nil {
			result.FailureCount++
			result.Results = append(result.Results, CityOpResult{CityID: cityID, Success: false, Error: err.Error()})
			continue
		}
		result.SuccessCount++
		result.Results = append(result.Results, CityOpResult{CityID: cityID, Success: true})
	}
	result.Success = result.FailureCount == 0
	return result
}
