package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/diewo77/go-katalog/internal/apperr"
	"github.com/diewo77/go-katalog/internal/metrics"
	"github.com/diewo77/go-katalog/internal/models"
	"github.com/diewo77/go-katalog/internal/store"
	"github.com/diewo77/go-katalog/internal/validation"
)

// MarketService serves the buyer side of the catalog.
type MarketService struct {
	store   *store.Store
	metrics *metrics.Metrics
}

func NewMarketService(s *store.Store, m *metrics.Metrics) *MarketService {
	return &MarketService{store: s, metrics: m}
}

// ParseOfferPrice accepts a positive finite decimal.
func ParseOfferPrice(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	violations := validation.Violations{}
	validation.PositiveFloat("offerPrice", v, violations)
	if !violations.Empty() {
		return 0, false
	}
	return v, true
}

// VisibleProduct loads a product as a buyer may see it: unverified
// listings do not exist for buyers.
func (s *MarketService) VisibleProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.store.Products.ByID(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("market.product", "Product not found.")
		}
		return nil, err
	}
	if !p.IsVerified {
		return nil, apperr.NotFound("market.product", "Product not found.")
	}
	return p, nil
}

// MakeOffer records a bid by buyerID. The price is checked before anything
// is read, so an invalid price never touches the store.
func (s *MarketService) MakeOffer(ctx context.Context, buyerID, productID uint, rawPrice string) (*models.Offer, error) {
	const op = "market.make_offer"
	price, ok := ParseOfferPrice(rawPrice)
	if !ok {
		return nil, apperr.Validation(op, "Invalid offer price.")
	}
	p, err := s.VisibleProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.UserID == buyerID {
		return nil, apperr.Validation(op, "You cannot make an offer on your own product.")
	}
	o := &models.Offer{UserID: buyerID, ProductID: p.ID, OfferPrice: price}
	if err := s.store.Offers.Create(ctx, o); err != nil {
		return nil, err
	}
	s.metrics.OfferCreated()
	return o, nil
}
