package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"pasmi/terminal/internal/cache"
	"pasmi/terminal/internal/cart"
	"pasmi/terminal/internal/catalog"
	"pasmi/terminal/internal/domain"
	"pasmi/terminal/internal/events"
	"pasmi/terminal/internal/gateway"
	"pasmi/terminal/internal/notice"
	"pasmi/terminal/internal/orders"
	"pasmi/terminal/internal/payment"
	"pasmi/terminal/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Gateway is the sheet endpoint as seen by the terminal.
type Gateway interface {
	Products(ctx context.Context) ([]domain.Product, error)
	ActiveOrders(ctx context.Context) ([]domain.Order, error)
	Reports(ctx context.Context, date string) ([]domain.ReportRecord, error)
	Insights(ctx context.Context, date string) (domain.Insights, error)
	DailyFinancials(ctx context.Context, date string) (domain.DailySnapshot, error)
	Settings(ctx context.Context) (domain.Settings, error)
	RecordSale(ctx context.Context, sale domain.Sale) error
	SettleOrder(ctx context.Context, id string, payment domain.PaymentBreakdown) error
	AddExpense(ctx context.Context, desc string, value int64) error
	SetBase(ctx context.Context, value int64) error
	UpdateBulkStock(ctx context.Context, value int64, add bool) (int64, bool, error)
	AddProduct(ctx context.Context, p domain.Product) error
	UpdateProduct(ctx context.Context, p domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	UpdateSettings(ctx context.Context, in gateway.SettingsUpdate) error
	UpdateOrderStatus(ctx context.Context, id string, kind string, value bool) error
}

type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// ValidationError is an input problem shown to the operator verbatim.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

type Service struct {
	gateway   Gateway
	uploader  Uploader
	state     store.StateStore
	reports   cache.ReportsCache
	cacheTTL  time.Duration
	publisher events.Publisher
	logger    *logrus.Logger
	validate  *validator.Validate
	now       func() time.Time

	cart    *cart.Cart
	catalog *catalog.Catalog
	orders  *orders.Board
	notices *notice.Board

	checkoutMu sync.Mutex
	keypadMu   sync.Mutex
	keypad     *payment.Keypad
}

func New(gw Gateway, state store.StateStore, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		gateway:   gw,
		state:     state,
		reports:   cache.NoopReportsCache{},
		cacheTTL:  time.Minute,
		publisher: events.NoopPublisher{},
		logger:    logger,
		validate:  validator.New(),
		now:       time.Now,
		cart:      cart.New(),
		catalog:   catalog.New(),
		orders:    orders.NewBoard(),
		notices:   notice.NewBoard(notice.DefaultTTL),
		keypad:    payment.NewKeypad(),
	}
}

func (s *Service) WithReportsCache(c cache.ReportsCache, ttl time.Duration) *Service {
	s.reports = c
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

func (s *Service) WithPublisher(p events.Publisher) *Service {
	s.publisher = p
	return s
}

func (s *Service) WithUploader(u Uploader) *Service {
	s.uploader = u
	return s
}

func (s *Service) WithNotices(b *notice.Board) *Service {
	s.notices = b
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Load fills the catalog and the active orders board. Both feeds are
// fetched even when the first one fails.
func (s *Service) Load(ctx context.Context) error {
	_, perr := s.RefreshProducts(ctx)
	_, oerr := s.RefreshOrders(ctx)
	return errors.Join(perr, oerr)
}

func (s *Service) Close() error {
	return s.notices.Close()
}

func (s *Service) Notices() []domain.Notice {
	return s.notices.List()
}

func (s *Service) DismissNotice(id string) bool {
	return s.notices.Dismiss(id)
}

// check runs the struct tags of in and turns any failure into message.
func (s *Service) check(in any, message string) error {
	if err := s.validate.Struct(in); err != nil {
		return &ValidationError{Message: message, Err: err}
	}
	return nil
}

// fail surfaces err as an error notice and returns it unchanged.
func (s *Service) fail(err error) error {
	if err == nil {
		return nil
	}
	s.notices.Error(err.Error())
	return err
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if actor, ok := ActorFromContext(ctx); ok {
		event.Actor = actor.Username
	}
	if event.At.IsZero() {
		event.At = s.now().UTC()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithFields(logrus.Fields{"event": event.Type}).WithError(err).Warn("publish event failed")
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	s.logger.WithFields(logrus.Fields{
		"module":      "audit",
		"actor":       actor.Username,
		"actor_role":  actor.Role,
		"action":      action,
		"entity_type": entityType,
		"entity_id":   entityID,
		"detail":      detail,
	}).Info("audit")
}

func (s *Service) today() string {
	return s.now().Format("2006-01-02")
}
