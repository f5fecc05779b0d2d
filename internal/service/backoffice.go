package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"pasmi/terminal/internal/catalog"
	"pasmi/terminal/internal/domain"
	"pasmi/terminal/internal/events"
	"pasmi/terminal/internal/gateway"
	"pasmi/terminal/internal/reports"
	"pasmi/terminal/internal/store"
	"pasmi/terminal/internal/xid"
)

const (
	DefaultSmartGoal int64 = 40318

	msgNameRequired    = "Nombre es obligatorio"
	msgInvalidStock    = "Stock inválido"
	msgProductSaved    = "Guardado en Inventario"
	msgProductUpdated  = "Inventario actualizado"
	msgProductDeleted  = "Eliminado"
	msgExpenseRequired = "Completa descripción y valor"
	msgExpenseSaved    = "Egreso guardado"
	msgInvalidValue    = "Valor inválido"
	msgBaseSaved       = "Base guardada"
	msgBulkStockSaved  = "Stock de café actualizado"
	msgSettingsSaved   = "Configuración guardada"
	msgInvalidSettings = "Configuración inválida"
)

// StaleError reports an upstream failure answered from the stored copy.
type StaleError struct {
	Err error
}

func (e *StaleError) Error() string {
	return e.Err.Error()
}

func (e *StaleError) Unwrap() error {
	return e.Err
}

// Image is an optional photo attached to a product form.
type Image struct {
	Filename string
	Data     []byte
}

func (s *Service) Products(category string) []domain.Product {
	if category == "" {
		return s.catalog.List()
	}
	return s.catalog.ByCategory(category)
}

func (s *Service) LowStock(limit int) []domain.Product {
	return s.catalog.LowStock(limit)
}

func (s *Service) Categories() []domain.Category {
	return catalog.Categories()
}

func (s *Service) RefreshProducts(ctx context.Context) ([]domain.Product, error) {
	list, err := s.gateway.Products(ctx)
	if err != nil {
		return s.catalog.List(), err
	}
	s.catalog.Replace(list)
	return s.catalog.List(), nil
}

// SaveProduct creates or updates a product from the inventory form. A
// photo, when given, is uploaded first and its URL stored on the product.
func (s *Service) SaveProduct(ctx context.Context, form domain.ProductForm, img *Image) (domain.Product, error) {
	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		return domain.Product{}, s.fail(invalid(msgNameRequired))
	}
	if err := s.check(form, msgInvalidValue); err != nil {
		return domain.Product{}, s.fail(err)
	}

	p, err := productFromForm(form)
	if err != nil {
		return domain.Product{}, s.fail(err)
	}

	if img != nil && len(img.Data) > 0 {
		if s.uploader == nil {
			return domain.Product{}, s.fail(errors.New("la subida de imágenes no está configurada"))
		}
		url, err := s.uploader.Upload(ctx, img.Filename, img.Data)
		if err != nil {
			return domain.Product{}, s.fail(err)
		}
		p.Image = url
	}

	editing := form.ID != ""
	if editing {
		err = s.gateway.UpdateProduct(ctx, p)
	} else {
		err = s.gateway.AddProduct(ctx, p)
		p.ID = xid.New("prd")
	}
	if err != nil {
		return domain.Product{}, s.fail(err)
	}

	if editing {
		s.notices.Info(msgProductUpdated)
	} else {
		s.notices.Info(msgProductSaved)
	}
	s.catalog.Upsert(p)
	s.publish(ctx, events.Event{Type: events.ProductSaved, ProductID: p.ID, Note: p.Name})
	s.logAudit(ctx, "product_save", "product", p.ID, fmt.Sprintf("name=%s,price=%d,edit=%t", p.Name, p.Price, editing))

	if _, err := s.RefreshProducts(ctx); err != nil {
		s.logger.WithError(err).Warn("reload after product save failed")
	}
	return p, nil
}

func productFromForm(form domain.ProductForm) (domain.Product, error) {
	p := domain.Product{
		ID:             strings.TrimSpace(form.ID),
		Name:           form.Name,
		Price:          form.Price,
		Category:       strings.TrimSpace(form.Category),
		Unit:           strings.TrimSpace(form.Unit),
		ConsumePerSale: form.ConsumePerSale,
		Image:          strings.TrimSpace(form.Image),
		BulkPool:       form.BulkPool,
		Stock:          domain.UntrackedStock(),
	}
	if p.Unit == "" {
		p.Unit = domain.DefaultUnit
	}
	if p.ConsumePerSale < 1 {
		p.ConsumePerSale = 1
	}
	raw := strings.TrimSpace(form.Stock)
	if !form.BulkPool && raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.Product{}, &ValidationError{Message: msgInvalidStock, Err: err}
		}
		p.Stock = domain.TrackedStock(n)
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.fail(invalid(msgUnknownProduct))
	}
	if err := s.gateway.DeleteProduct(ctx, id); err != nil {
		return s.fail(err)
	}
	s.catalog.Remove(id)
	s.notices.Info(msgProductDeleted)
	s.publish(ctx, events.Event{Type: events.ProductDeleted, ProductID: id})
	s.logAudit(ctx, "product_delete", "product", id, "")
	return nil
}

// Settings reads the shop settings. When the sheet cannot be reached the
// last copy kept in the state store is returned together with the error.
func (s *Service) Settings(ctx context.Context) (domain.Settings, error) {
	settings, err := s.gateway.Settings(ctx)
	if err != nil {
		cached, cerr := store.GetJSON[domain.Settings](ctx, s.state, store.KeySettings)
		if cerr != nil {
			return domain.Settings{SmartGoal: DefaultSmartGoal}, err
		}
		return cached, &StaleError{Err: err}
	}
	if settings.SmartGoal == 0 {
		settings.SmartGoal = DefaultSmartGoal
	}
	if perr := store.PutJSON(ctx, s.state, store.KeySettings, settings); perr != nil {
		s.logger.WithError(perr).Warn("persist settings failed")
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, form domain.SettingsForm) (domain.Settings, error) {
	if err := s.check(form, msgInvalidSettings); err != nil {
		return domain.Settings{}, s.fail(err)
	}
	update := gateway.SettingsUpdate{
		Name:       strings.TrimSpace(form.Name),
		TaxID:      strings.TrimSpace(form.TaxID),
		CustomGoal: form.CustomGoal,
	}
	if err := s.gateway.UpdateSettings(ctx, update); err != nil {
		return domain.Settings{}, s.fail(err)
	}
	s.notices.Info(msgSettingsSaved)
	s.publish(ctx, events.Event{Type: events.SettingsUpdated, Note: update.Name})
	s.logAudit(ctx, "settings_update", "settings", "", fmt.Sprintf("name=%s,goal=%d", update.Name, update.CustomGoal))

	settings, err := s.Settings(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("reload after settings update failed")
		settings.Name, settings.TaxID, settings.CustomGoal = update.Name, update.TaxID, update.CustomGoal
	}
	return settings, nil
}

func (s *Service) SetBase(ctx context.Context, req domain.AmountRequest) error {
	if err := s.check(req, msgInvalidValue); err != nil {
		return s.fail(err)
	}
	if err := s.gateway.SetBase(ctx, req.Value); err != nil {
		return s.fail(err)
	}
	s.notices.Info(msgBaseSaved)
	s.publish(ctx, events.Event{Type: events.BaseSet, Total: req.Value})
	s.logAudit(ctx, "cash_base", "cash", s.today(), fmt.Sprintf("value=%d", req.Value))
	return nil
}

func (s *Service) AddExpense(ctx context.Context, req domain.ExpenseRequest) error {
	req.Description = strings.TrimSpace(req.Description)
	if err := s.check(req, msgExpenseRequired); err != nil {
		return s.fail(err)
	}
	if err := s.gateway.AddExpense(ctx, req.Description, req.Value); err != nil {
		return s.fail(err)
	}
	s.notices.Info(msgExpenseSaved)
	s.publish(ctx, events.Event{Type: events.ExpenseAdded, Total: req.Value, Note: req.Description})
	s.logAudit(ctx, "cash_expense", "cash", s.today(), fmt.Sprintf("desc=%s,value=%d", req.Description, req.Value))
	return nil
}

// AddBulkStock tops up the shared bulk ingredient pool. It returns the new
// pool level when the sheet reports one.
func (s *Service) AddBulkStock(ctx context.Context, req domain.AmountRequest) (int64, bool, error) {
	if req.Value <= 0 {
		return 0, false, s.fail(invalid(msgInvalidValue))
	}
	level, known, err := s.gateway.UpdateBulkStock(ctx, req.Value, true)
	if err != nil {
		return 0, false, s.fail(err)
	}
	s.notices.Info(msgBulkStockSaved)
	s.publish(ctx, events.Event{Type: events.BulkStockAdded, Total: req.Value})
	s.logAudit(ctx, "stock_bulk", "stock", "", fmt.Sprintf("add=%d", req.Value))
	return level, known, nil
}

// Dashboard fetches the four daily feeds concurrently and derives the
// dashboard for date. An empty date means today.
func (s *Service) Dashboard(ctx context.Context, date string) (reports.Dashboard, error) {
	if strings.TrimSpace(date) == "" {
		date = s.today()
	}
	day := domain.NormalizeDate(date)

	var in reports.Inputs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.gateway.Insights(gctx, day)
		in.Insights = v
		return err
	})
	g.Go(func() error {
		v, err := s.gateway.DailyFinancials(gctx, day)
		in.Snapshot = v
		return err
	})
	g.Go(func() error {
		v, err := s.gateway.Products(gctx)
		in.Products = v
		return err
	})
	g.Go(func() error {
		v, err := s.reportRecords(gctx, day)
		in.Records = v
		return err
	})
	if err := g.Wait(); err != nil {
		return reports.Dashboard{}, s.fail(err)
	}
	return reports.Build(day, in), nil
}
