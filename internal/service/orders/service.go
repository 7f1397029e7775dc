// Package orders связывает HTTP-слой с репозиторием заказов: трассировка,
// метрики операций и публикация событий об изменениях.
package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/tracing"
)

// Имена операций в метриках и спанах.
const (
	opCreate = "create"
	opGet    = "get"
	opList   = "list"
	opUpdate = "update"
	opDelete = "delete"
)

const defaultPublishTimeout = 3 * time.Second

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPublisher подключает публикацию событий.
func WithPublisher(publisher domain.OrderEventPublisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithPublishTimeout ограничивает ожидание брокера внутри запроса.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.publishTimeout = timeout
		}
	}
}

// WithMetrics подключает Prometheus-метрики.
func WithMetrics(m *metrics.RepositoryMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer задаёт трейсер; по умолчанию берётся глобальный провайдер.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// Service — прикладной сервис заказов.
type Service struct {
	repo      domain.OrderRepository
	publisher domain.OrderEventPublisher
	metrics   *metrics.RepositoryMetrics
	tracer    trace.Tracer
	logger    *log.Entry
	now       func() time.Time

	publishTimeout time.Duration
}

// NewService конструирует сервис поверх репозитория.
func NewService(repo domain.OrderRepository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		publisher: domain.NoopPublisher{},
		tracer:    otel.Tracer(tracing.TracerName),
		logger:    log.WithField("component", "orders-service"),
		now:       func() time.Time { return time.Now().UTC() },

		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create сохраняет новый заказ и публикует order.created.
func (s *Service) Create(ctx context.Context, in domain.CreateOrder) (order domain.Order, err error) {
	ctx, finish := s.start(ctx, opCreate, attribute.String("order.customer_id", in.CustomerID))
	defer func() { finish(err) }()

	order, err = s.repo.Create(ctx, in)
	if err != nil {
		return domain.Order{}, err
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("order.id", order.ID))
	s.publish(ctx, domain.OrderEvent{
		Type:       domain.OrderEventCreated,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		CreatedAt:  order.CreatedAt,
	})
	return order, nil
}

// Get возвращает заказ по id.
func (s *Service) Get(ctx context.Context, id string) (order domain.Order, err error) {
	ctx, finish := s.start(ctx, opGet, attribute.String("order.id", id))
	defer func() { finish(err) }()

	return s.repo.GetByID(ctx, id)
}

// List возвращает страницу заказов.
func (s *Service) List(ctx context.Context, page, perPage int) (result domain.Page, err error) {
	ctx, finish := s.start(ctx, opList,
		attribute.Int("pagination.page", page),
		attribute.Int("pagination.per_page", perPage),
	)
	defer func() { finish(err) }()

	result, err = s.repo.List(ctx, page, perPage)
	if err != nil {
		return domain.Page{}, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("pagination.returned", len(result.Items)),
		attribute.Int64("pagination.total_count", result.TotalCount),
	)
	return result, nil
}

// Update заменяет поля заказа и возвращает его новое состояние.
func (s *Service) Update(ctx context.Context, id string, in domain.UpdateOrder) (order domain.Order, err error) {
	ctx, finish := s.start(ctx, opUpdate, attribute.String("order.id", id))
	defer func() { finish(err) }()

	if err = s.repo.Update(ctx, id, in); err != nil {
		return domain.Order{}, err
	}

	order = domain.Order{
		ID:         canonicalID(id),
		CreatedAt:  in.CreatedAt,
		CustomerID: in.CustomerID,
	}
	s.publish(ctx, domain.OrderEvent{
		Type:       domain.OrderEventUpdated,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		CreatedAt:  order.CreatedAt,
	})
	return order, nil
}

// Delete удаляет заказ и возвращает его канонический id.
func (s *Service) Delete(ctx context.Context, id string) (deletedID string, err error) {
	ctx, finish := s.start(ctx, opDelete, attribute.String("order.id", id))
	defer func() { finish(err) }()

	if err = s.repo.Delete(ctx, id); err != nil {
		return "", err
	}

	deletedID = canonicalID(id)
	s.publish(ctx, domain.OrderEvent{Type: domain.OrderEventDeleted, OrderID: deletedID})
	return deletedID, nil
}

// start открывает спан операции и возвращает функцию завершения,
// которая пишет метрики, статус спана и лог ошибки.
func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "orders."+op, trace.WithAttributes(attrs...))
	started := time.Now()

	return ctx, func(err error) {
		defer span.End()

		elapsed := time.Since(started)
		s.metrics.ObserveOperation(op, elapsed, err)

		kind := domain.ErrorKind(err)
		span.SetAttributes(attribute.String("orders.outcome", kind))
		if err == nil {
			span.SetStatus(codes.Ok, "")
			return
		}

		entry := s.logger.WithError(err).WithFields(log.Fields{
			"operation": op,
			"kind":      kind,
			"duration":  elapsed,
		})
		if expectedFailure(err) {
			entry.Debug("order operation rejected")
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		entry.Warn("order operation failed")
	}
}

// publish отправляет событие после успешной записи. Ошибка публикации
// только логируется: изменение уже зафиксировано в базе.
// Ожидание брокера ограничено publishTimeout.
func (s *Service) publish(ctx context.Context, event domain.OrderEvent) {
	event.OccurredAt = s.now()

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	err := s.publisher.Publish(publishCtx, event)
	s.metrics.RecordEventPublished(event.Type, err)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": event.Type,
			"order_id":   event.OrderID,
		}).Warn("failed to publish order event")
	}
}

// expectedFailure — ошибки клиента и отмена запроса, которые не являются сбоем сервиса.
func expectedFailure(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidPagination) ||
		domain.IsValidation(err) ||
		errors.Is(err, context.Canceled)
}

func canonicalID(id string) string {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}
