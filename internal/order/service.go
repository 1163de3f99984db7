package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"warehouse-api/internal/logger"
	"warehouse-api/internal/metrics"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	tracer   = otel.Tracer("warehouse-api/order")
	validate = validator.New()
)

type Service interface {
	Create(ctx context.Context, items []ItemInput) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	Get(ctx context.Context, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*Order, error)
}

type service struct {
	repo  Repository
	cache ProductCache
	pub   Publisher
	now   func() time.Time
}

// NewService builds the order service. cache and pub may be nil.
func NewService(repo Repository, cache ProductCache, pub Publisher) Service {
	if cache == nil {
		cache = nopCache{}
	}
	if pub == nil {
		pub = nopPublisher{}
	}
	return &service{
		repo:  repo,
		cache: cache,
		pub:   pub,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, items []ItemInput) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.Create", trace.WithAttributes(attribute.Int("order.item_count", len(items))))
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.Int("item_count", len(items)),
	)

	if err := validateItems(items); err != nil {
		metrics.Default.Counter("orders_rejected").Inc()
		log.Warn("rejected order input", zap.Error(err))
		return nil, err
	}

	o, err := s.repo.Create(ctx, items, s.now())
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			metrics.Default.Counter("orders_rejected").Inc()
			log.Warn("order rejected", zap.Error(err))
			return nil, err
		}
		fail(span, err)
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	s.cache.Invalidate(ctx, o.ProductIDs()...)

	key := strconv.FormatInt(o.ID, 10)
	if err := s.pub.Publish(ctx, key, EventOrderCreated, newCreatedEvent(o)); err != nil {
		log.Warn("failed to publish event", zap.String("event", EventOrderCreated), zap.Error(err))
	}

	span.SetAttributes(attribute.Int64("order.id", o.ID))
	metrics.Default.Counter("orders_created").Inc()
	metrics.Default.Counter("order_units_reserved").Add(uint64(o.Units()))
	log.Info("order created", zap.Int64("order_id", o.ID))
	return o, nil
}

func (s *service) List(ctx context.Context) ([]Order, error) {
	ctx, span := tracer.Start(ctx, "order.List")
	defer span.End()

	orders, err := s.repo.GetAll(ctx)
	if err != nil {
		fail(span, err)
		logger.FromCtx(ctx).Error("failed to list orders", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("order.count", len(orders)))
	return orders, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			fail(span, err)
			logger.FromCtx(ctx).Error("failed to get order", zap.Int64("order_id", id), zap.Error(err))
		}
		return nil, err
	}
	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, id int64, status string) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", status),
	))
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateOrderStatus"),
		zap.Int64("order_id", id),
		zap.String("status", status),
	)

	if strings.TrimSpace(status) == "" {
		log.Warn("rejected empty status")
		return nil, fmt.Errorf("%w: status must not be empty", ErrInvalidOrder)
	}

	o, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			fail(span, err)
			log.Error("failed to update order status", zap.Error(err))
		}
		return nil, err
	}

	ev := StatusChangedEvent{OrderID: o.ID, Status: o.Status}
	if err := s.pub.Publish(ctx, strconv.FormatInt(o.ID, 10), EventOrderStatusChanged, ev); err != nil {
		log.Warn("failed to publish event", zap.String("event", EventOrderStatusChanged), zap.Error(err))
	}

	metrics.Default.Counter("order_status_updated").Inc()
	log.Info("order status updated")
	return o, nil
}

// MaxQuantity is the largest item quantity the order_items column holds.
const MaxQuantity = math.MaxInt32

type itemRules struct {
	ProductID int64 `validate:"gte=1"`
	Quantity  int   `validate:"gte=1,lte=2147483647"`
}

// validateItems requires at least one item, each with a positive product id
// and a quantity in 1..MaxQuantity.
func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}

	for i, it := range items {
		err := validate.Struct(itemRules{ProductID: it.ProductID, Quantity: it.Quantity})
		if err == nil {
			continue
		}

		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch {
			case verrs[0].Field() == "ProductID":
				return fmt.Errorf("%w: items[%d].product_id must be positive", ErrInvalidOrder, i)
			case verrs[0].Tag() == "lte":
				return fmt.Errorf("%w: items[%d].quantity must not exceed %d", ErrInvalidOrder, i, MaxQuantity)
			}
			return fmt.Errorf("%w: items[%d].quantity must be positive", ErrInvalidOrder, i)
		}
		return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	return nil
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
