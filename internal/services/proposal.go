package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pair-date-backend/internal/metrics"
	"pair-date-backend/internal/models"
	"pair-date-backend/internal/repository"
	"pair-date-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	defaultQueueLimit = 20
	maxQueueLimit     = 100
)

// ImageResolver turns stored image keys into fetchable URLs
type ImageResolver interface {
	ResolveAll(ctx context.Context, keys []string) ([]string, error)
	UploadURL(ctx context.Context, prefix, contentType string) (*storage.UploadTarget, error)
}

// ProposalService handles proposal authoring and the swipe queue
type ProposalService struct {
	store   repository.Store
	images  ImageResolver
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewProposalService creates a new proposal service
func NewProposalService(store repository.Store, images ImageResolver, m *metrics.Metrics) *ProposalService {
	return &ProposalService{
		store:   store,
		images:  images,
		metrics: m,
		now:     time.Now,
	}
}

// CreateProposalRequest describes a couple-authored date idea
type CreateProposalRequest struct {
	Title       string           `json:"title" validate:"required,max=120"`
	Description string           `json:"description" validate:"max=2000"`
	Category    string           `json:"category" validate:"required,max=40"`
	ImageKeys   []string         `json:"image_keys" validate:"required,min=1,max=10,dive,required"`
	Location    *string          `json:"location,omitempty" validate:"omitempty,max=200"`
	URL         *string          `json:"url,omitempty" validate:"omitempty,url"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

// Create stores a proposal owned by the caller's couple and records the
// creator's own right swipe in the same transaction.
func (s *ProposalService) Create(ctx context.Context, userID string, req CreateProposalRequest) (*models.Proposal, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if len(req.ImageKeys) == 0 {
		return nil, invalid("at least one image is required")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, invalid("price must not be negative")
	}

	var proposal *models.Proposal
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		_, coupleID, err := requireCouple(ctx, tx.Users(), userID)
		if err != nil {
			return err
		}

		now := s.now()
		creator := userID
		proposal = &models.Proposal{
			ID:          uuid.New().String(),
			Title:       title,
			Description: strings.TrimSpace(req.Description),
			Category:    strings.TrimSpace(req.Category),
			ImageKeys:   append([]string{}, req.ImageKeys...),
			Location:    req.Location,
			URL:         req.URL,
			Price:       req.Price,
			CreatedBy:   &creator,
			CoupleID:    &coupleID,
			IsActive:    true,
			CreatedAt:   now,
		}
		if err := tx.Proposals().Create(ctx, proposal); err != nil {
			return fmt.Errorf("failed to create proposal: %w", err)
		}

		swipe := &models.Swipe{
			ID:         uuid.New().String(),
			UserID:     userID,
			ProposalID: proposal.ID,
			Direction:  models.DirectionRight,
			CreatedAt:  now,
		}
		if err := tx.Swipes().Create(ctx, swipe); err != nil {
			return fmt.Errorf("failed to record creator swipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSwipe(string(models.DirectionRight))
	log.Info().Str("user_id", userID).Str("proposal_id", proposal.ID).Msg("Proposal created")
	return proposal, nil
}

// Queue returns proposals the caller can still swipe on
func (s *ProposalService) Queue(ctx context.Context, userID string, limit int) ([]models.ProposalView, error) {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	if limit > maxQueueLimit {
		limit = maxQueueLimit
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, wrapLookup(err, "user not found")
	}

	proposals, err := s.store.Proposals().ListSwipeable(ctx, userID, user.CoupleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list swipeable proposals: %w", err)
	}

	views := make([]models.ProposalView, 0, len(proposals))
	for _, p := range proposals {
		views = append(views, resolveProposal(ctx, s.images, p))
	}
	return views, nil
}

// Deactivate soft-deletes a proposal. Only its creator may do so.
func (s *ProposalService) Deactivate(ctx context.Context, userID, proposalID string) error {
	return s.store.WithTx(ctx, func(tx repository.Store) error {
		proposal, err := tx.Proposals().GetByID(ctx, proposalID)
		if err != nil {
			return wrapLookup(err, "proposal not found")
		}
		if proposal.CreatedBy == nil || *proposal.CreatedBy != userID {
			return fmt.Errorf("only the creator can remove a proposal: %w", ErrForbidden)
		}
		if err := tx.Proposals().Deactivate(ctx, proposalID); err != nil {
			return wrapLookup(err, "failed to deactivate proposal")
		}
		return nil
	})
}

// UploadURL issues a presigned upload for a new proposal image
func (s *ProposalService) UploadURL(ctx context.Context, userID, contentType string) (*storage.UploadTarget, error) {
	_, coupleID, err := requireCouple(ctx, s.store.Users(), userID)
	if err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, storage.ErrNotConfigured
	}

	target, err := s.images.UploadURL(ctx, coupleID, contentType)
	if errors.Is(err, storage.ErrUnsupportedMimeType) {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create upload url: %w", err)
	}
	return target, nil
}

// resolveProposal attaches image URLs. Resolution failures leave the view
// unresolved instead of failing the read.
func resolveProposal(ctx context.Context, images ImageResolver, p *models.Proposal) models.ProposalView {
	view := models.ProposalView{Proposal: *p}
	if images == nil || len(p.ImageKeys) == 0 {
		return view
	}
	urls, err := images.ResolveAll(ctx, p.ImageKeys)
	if err != nil {
		log.Debug().Err(err).Str("proposal_id", p.ID).Msg("Image resolution failed")
		return view
	}
	view.ImageURLs = urls
	view.ImagesResolved = true
	return view
}
