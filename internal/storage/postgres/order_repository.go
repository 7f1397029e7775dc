package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/pagination"
)

const (
	defaultAcquireTimeout = 2 * time.Second
	defaultQueryTimeout   = 5 * time.Second

	insertOrderSQL = `
		INSERT INTO orders (id, created_at, customer_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, customer_id
	`
	selectOrderSQL = `
		SELECT id, created_at, customer_id
		FROM orders
		WHERE id = $1
	`
	listOrdersSQL = `
		SELECT id, created_at, customer_id
		FROM orders
		ORDER BY id
		LIMIT $1 OFFSET $2
	`
	countOrdersSQL = `SELECT COUNT(*) FROM orders`
	updateOrderSQL = `
		UPDATE orders
		SET created_at = $1,
		    customer_id = $2
		WHERE id = $3
	`
	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

// Option настраивает OrderRepository.
type Option func(*OrderRepository)

// WithAcquireTimeout ограничивает ожидание свободного соединения.
func WithAcquireTimeout(timeout time.Duration) Option {
	return func(r *OrderRepository) {
		if timeout > 0 {
			r.acquireTimeout = timeout
		}
	}
}

// WithQueryTimeout ограничивает один запрос к базе.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(r *OrderRepository) {
		if timeout > 0 {
			r.queryTimeout = timeout
		}
	}
}

// WithSnapshotList читает COUNT и страницу в одной read-only транзакции
// REPEATABLE READ, чтобы total_count и items были согласованы.
func WithSnapshotList(enabled bool) Option {
	return func(r *OrderRepository) {
		r.snapshotList = enabled
	}
}

// OrderRepository — PostgreSQL-реализация domain.OrderRepository.
//
// Каждая операция берёт из пула ровно одно соединение и возвращает его
// на любом пути выхода. Запросы к базе выполняются на контексте без отмены,
// ограниченном queryTimeout: если вызывающий ушёл, запрос доходит до конца,
// а результат отбрасывается.
type OrderRepository struct {
	pool           Pool
	acquireTimeout time.Duration
	queryTimeout   time.Duration
	snapshotList   bool
}

// NewOrderRepository создаёт репозиторий поверх пула.
func NewOrderRepository(pool Pool, opts ...Option) *OrderRepository {
	r := &OrderRepository{
		pool:           pool,
		acquireTimeout: defaultAcquireTimeout,
		queryTimeout:   defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create выдаёт новый UUID и вставляет строку.
func (r *OrderRepository) Create(ctx context.Context, in domain.CreateOrder) (domain.Order, error) {
	if err := in.Validate(); err != nil {
		return domain.Order{}, err
	}

	conn, err := r.acquire(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer conn.Release()

	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()

	orders, err := queryOrders(storeCtx, conn, insertOrderSQL, uuid.NewString(), in.CreatedAt, in.CustomerID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.Order{}, ctxErr
	}
	if err != nil {
		return domain.Order{}, storeError(domain.ErrStoreWrite, "insert order", err)
	}
	if len(orders) != 1 {
		return domain.Order{}, fmt.Errorf("%w: insert order: returned %d rows", domain.ErrStoreWrite, len(orders))
	}

	return orders[0], nil
}

// GetByID возвращает заказ по идентификатору.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	orderID, ok := canonicalID(id)
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}

	conn, err := r.acquire(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer conn.Release()

	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()

	orders, err := queryOrders(storeCtx, conn, selectOrderSQL, orderID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.Order{}, ctxErr
	}
	if err != nil {
		return domain.Order{}, storeError(domain.ErrStoreRead, "select order", err)
	}
	if len(orders) == 0 {
		return domain.Order{}, domain.ErrNotFound
	}

	return orders[0], nil
}

// List возвращает страницу заказов, упорядоченных по id, и общее число строк.
func (r *OrderRepository) List(ctx context.Context, page, perPage int) (domain.Page, error) {
	window, err := pagination.New(page, perPage)
	if err != nil {
		return domain.Page{}, err
	}

	conn, err := r.acquire(ctx)
	if err != nil {
		return domain.Page{}, err
	}
	defer conn.Release()

	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()

	var (
		q  querier = conn
		tx pgx.Tx
	)
	if r.snapshotList {
		tx, err = conn.BeginTx(storeCtx, pgx.TxOptions{
			IsoLevel:   pgx.RepeatableRead,
			AccessMode: pgx.ReadOnly,
		})
		if err != nil {
			return domain.Page{}, storeError(domain.ErrStoreRead, "begin list snapshot", err)
		}
		// После Commit откат вернёт ErrTxClosed, это ожидаемо.
		defer func() { _ = tx.Rollback(storeCtx) }()
		q = tx
	}

	var total int64
	if err := q.QueryRow(storeCtx, countOrdersSQL).Scan(&total); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Page{}, ctxErr
		}
		return domain.Page{}, storeError(domain.ErrStoreRead, "count orders", err)
	}

	items, err := queryOrders(storeCtx, q, listOrdersSQL, window.Limit, window.Offset)
	if err == nil && tx != nil {
		if commitErr := tx.Commit(storeCtx); commitErr != nil {
			err = fmt.Errorf("commit list snapshot: %w", commitErr)
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.Page{}, ctxErr
	}
	if err != nil {
		return domain.Page{}, storeError(domain.ErrStoreRead, "list orders", err)
	}

	return domain.Page{
		Items:      items,
		TotalCount: total,
		Page:       window.Page,
		PerPage:    window.PerPage,
		HasMore:    window.HasMore(len(items), total),
	}, nil
}

// Update перезаписывает created_at и customer_id.
func (r *OrderRepository) Update(ctx context.Context, id string, in domain.UpdateOrder) error {
	if err := in.Validate(); err != nil {
		return err
	}
	orderID, ok := canonicalID(id)
	if !ok {
		return domain.ErrNotFound
	}

	return r.execAffectingOne(ctx, "update order", updateOrderSQL, in.CreatedAt, in.CustomerID, orderID)
}

// Delete физически удаляет строку.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	orderID, ok := canonicalID(id)
	if !ok {
		return domain.ErrNotFound
	}

	return r.execAffectingOne(ctx, "delete order", deleteOrderSQL, orderID)
}

// execAffectingOne выполняет запрос записи и отличает "0 строк" от успеха.
func (r *OrderRepository) execAffectingOne(ctx context.Context, op, sql string, args ...any) error {
	conn, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()

	tag, err := conn.Exec(storeCtx, sql, args...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return storeError(domain.ErrStoreWrite, op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// acquire ждёт соединение не дольше acquireTimeout и классифицирует отказ.
func (r *OrderRepository) acquire(ctx context.Context) (Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()

	conn, err := r.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, r.classifyAcquireError(ctx, err)
	}
	return conn, nil
}

func (r *OrderRepository) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.queryTimeout)
}

// classifyAcquireError отличает занятый пул от недоступной базы.
// Таймаут ожидания считается исчерпанием пула, только если все слоты
// действительно выданы; иначе время ушло на установку соединения.
func (r *OrderRepository) classifyAcquireError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var connectErr *pgconn.ConnectError
	switch {
	case errors.As(err, &connectErr):
		return fmt.Errorf("%w: %w", domain.ErrPoolUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		if sr, ok := r.pool.(SaturationReporter); ok && !sr.Saturated() {
			return fmt.Errorf("%w: connection not established in time: %w", domain.ErrPoolUnavailable, err)
		}
		return fmt.Errorf("%w: no connection released in time: %w", domain.ErrPoolExhausted, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrPoolUnavailable, err)
	}
}

func storeError(kind error, op string, err error) error {
	if errors.Is(err, domain.ErrCorruptRow) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", kind, op, err)
}

// canonicalID приводит UUID к каноническому виду. Строка, не являющаяся UUID,
// не может совпасть ни с одной строкой таблицы.
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queryOrders выполняет запрос и отображает каждую строку в Order.
// Ошибка отображения возвращается как ErrCorruptRow, остальные — как есть.
func queryOrders(ctx context.Context, q querier, sql string, args ...any) ([]domain.Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var order domain.Order
	if err := row.Scan(&order.ID, &order.CreatedAt, &order.CustomerID); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %w", domain.ErrCorruptRow, err)
	}
	return order, nil
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
