package product

import (
	"context"
	"errors"
	"fmt"
	"math"

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
	tracer   = otel.Tracer("warehouse-api/product")
	validate = validator.New()
)

type Service interface {
	Create(ctx context.Context, in Input) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
	Update(ctx context.Context, id int64, in Input) (*Product, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, in Input) (*Product, error) {
	ctx, span := tracer.Start(ctx, "product.Create")
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateProduct"),
	)

	if err := validateInput(in); err != nil {
		log.Warn("rejected product input", zap.Error(err))
		return nil, err
	}

	p, err := s.repo.Create(ctx, in)
	if err != nil {
		fail(span, err)
		log.Error("failed to create product", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int64("product.id", p.ID))
	metrics.Default.Counter("products_created").Inc()
	log.Info("product created", zap.Int64("product_id", p.ID))
	return p, nil
}

func (s *service) List(ctx context.Context) ([]Product, error) {
	ctx, span := tracer.Start(ctx, "product.List")
	defer span.End()

	products, err := s.repo.GetAll(ctx)
	if err != nil {
		fail(span, err)
		logger.FromCtx(ctx).Error("failed to list products", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("product.count", len(products)))
	return products, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Product, error) {
	ctx, span := tracer.Start(ctx, "product.Get", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrProductNotFound) {
			fail(span, err)
			logger.FromCtx(ctx).Error("failed to get product", zap.Int64("product_id", id), zap.Error(err))
		}
		return nil, err
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, id int64, in Input) (*Product, error) {
	ctx, span := tracer.Start(ctx, "product.Update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateProduct"),
		zap.Int64("product_id", id),
	)

	if err := validateInput(in); err != nil {
		log.Warn("rejected product input", zap.Error(err))
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, in)
	if err != nil {
		if !errors.Is(err, ErrProductNotFound) {
			fail(span, err)
			log.Error("failed to update product", zap.Error(err))
		}
		return nil, err
	}

	log.Info("product updated")
	return p, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "product.Delete", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "DeleteProduct"),
		zap.Int64("product_id", id),
	)

	err := s.repo.Delete(ctx, id)
	switch {
	case err == nil:
		metrics.Default.Counter("products_deleted").Inc()
		log.Info("product deleted")
		return nil
	case errors.Is(err, ErrProductNotFound):
		return err
	case errors.Is(err, ErrProductInUse):
		log.Warn("product delete blocked by order items")
		return err
	default:
		fail(span, err)
		log.Error("failed to delete product", zap.Error(err))
		return err
	}
}

// MaxQuantity is the largest stock level the products column holds.
const MaxQuantity = math.MaxInt32

type inputRules struct {
	Price    float64 `validate:"gte=0"`
	Quantity int     `validate:"gte=0,lte=2147483647"`
}

// validateInput rejects negative price and quantity, and quantities above
// MaxQuantity. Names and descriptions are free text, empty strings included.
func validateInput(in Input) error {
	err := validate.Struct(inputRules{Price: in.Price, Quantity: in.Quantity})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if verrs[0].Tag() == "lte" {
			return fmt.Errorf("%w: %s must not exceed %d", ErrInvalidProduct, lowerField(verrs[0].Field()), MaxQuantity)
		}
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidProduct, lowerField(verrs[0].Field()))
	}
	return fmt.Errorf("%w: %v", ErrInvalidProduct, err)
}

func lowerField(f string) string {
	switch f {
	case "Price":
		return "price"
	case "Quantity":
		return "quantity"
	default:
		return f
	}
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
