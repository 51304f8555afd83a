package vendors

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopledger/shopledger/internal/catalog"
	"github.com/shopledger/shopledger/internal/customers"
	"github.com/shopledger/shopledger/internal/platform/uow"
	"github.com/shopledger/shopledger/internal/shared"
	"github.com/shopledger/shopledger/internal/stock"
)

const idempotencyModule = "vendor.purchase"

// Scope is the slice of a unit of work purchase flows need.
type Scope interface {
	Stock() *stock.Engine
	Catalog() *catalog.Resolver
	Vendors() Repository
}

// Service handles the vendor purchase ledger.
type Service struct {
	uow         uow.Runner[Scope]
	idempotency *shared.IdempotencyStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. idem may be nil.
func NewService(runner uow.Runner[Scope], idem *shared.IdempotencyStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: runner, idempotency: idem, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// CreateVendor registers a vendor.
func (s *Service) CreateVendor(ctx context.Context, req CreateVendorRequest) (Vendor, error) {
	req.Mobile = customers.NormalizeMobile(req.Mobile)
	req.Name = strings.TrimSpace(req.Name)
	if err := shared.ValidateStruct(req).OrNil(); err != nil {
		return Vendor{}, err
	}
	return s.uow.Direct().Vendors().CreateVendor(ctx, Vendor{
		Name:      req.Name,
		Mobile:    req.Mobile,
		City:      strings.TrimSpace(req.City),
		CreatedAt: s.now(),
	})
}

// ListVendors returns every vendor ordered by name.
func (s *Service) ListVendors(ctx context.Context) ([]Vendor, error) {
	return s.uow.Direct().Vendors().ListVendors(ctx)
}

// RecordPurchase receives stock from a vendor and books the payable in one unit of work.
func (s *Service) RecordPurchase(ctx context.Context, idempotencyKey string, vendorID int64, req PurchaseRequest) (Purchase, error) {
	if err := req.Validate(); err != nil {
		return Purchase{}, err
	}
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.Reserve(ctx, idempotencyKey, idempotencyModule); err != nil {
			return Purchase{}, err
		}
	}
	purchase, err := s.recordPurchase(ctx, vendorID, req)
	if err != nil && idempotencyKey != "" && s.idempotency != nil {
		if rerr := s.idempotency.Release(context.WithoutCancel(ctx), idempotencyKey, idempotencyModule); rerr != nil {
			s.logger.WarnContext(ctx, "release idempotency key", slog.Any("error", rerr))
		}
	}
	return purchase, err
}

func (s *Service) recordPurchase(ctx context.Context, vendorID int64, req PurchaseRequest) (Purchase, error) {
	id := uuid.New()
	var created Purchase
	err := s.uow.Do(ctx, "vendor.purchase", func(ctx context.Context, scope Scope) error {
		if _, err := scope.Vendors().FindVendor(ctx, vendorID); err != nil {
			return err
		}
		purchase := Purchase{ID: id, VendorID: vendorID, Note: req.Note, Total: decimal.Zero, CreatedAt: s.now()}
		receipts := make([]stock.Receipt, 0, len(req.Items))
		for _, line := range req.Items {
			name, err := scope.Catalog().Resolve(ctx, line.Name)
			if err != nil {
				return err
			}
			total := line.Qty.Mul(line.Rate).Round(2)
			purchase.Items = append(purchase.Items, PurchaseItem{Name: name, Qty: line.Qty, Rate: line.Rate, Total: total})
			purchase.Total = purchase.Total.Add(total)
			receipts = append(receipts, stock.Receipt{Name: name, Qty: line.Qty, Rate: line.Rate})
		}
		if _, err := scope.Stock().Receive(ctx, receipts, stock.Ref{Type: "purchase", ID: id.String(), Note: req.Note}); err != nil {
			return err
		}
		var err error
		created, err = scope.Vendors().CreatePurchase(ctx, purchase)
		return err
	})
	if err != nil {
		return Purchase{}, err
	}
	return created, nil
}

// RecordPayment books money paid to a vendor.
func (s *Service) RecordPayment(ctx context.Context, vendorID int64, req PaymentRequest) (Payment, error) {
	if err := req.Validate(); err != nil {
		return Payment{}, err
	}
	repo := s.uow.Direct().Vendors()
	if _, err := repo.FindVendor(ctx, vendorID); err != nil {
		return Payment{}, err
	}
	return repo.CreatePayment(ctx, Payment{
		VendorID:  vendorID,
		Amount:    req.Amount,
		Mode:      req.Mode,
		Note:      req.Note,
		CreatedAt: s.now(),
	})
}

// Ledger returns a vendor's purchases, payments and outstanding balance.
func (s *Service) Ledger(ctx context.Context, vendorID int64) (Ledger, error) {
	repo := s.uow.Direct().Vendors()
	vendor, err := repo.FindVendor(ctx, vendorID)
	if err != nil {
		return Ledger{}, err
	}
	purchases, err := repo.ListPurchases(ctx, vendorID)
	if err != nil {
		return Ledger{}, err
	}
	payments, err := repo.ListPayments(ctx, vendorID)
	if err != nil {
		return Ledger{}, err
	}
	out := Ledger{Vendor: vendor, Purchases: purchases, Payments: payments, TotalPurchased: decimal.Zero, TotalPaid: decimal.Zero}
	for _, p := range purchases {
		out.TotalPurchased = out.TotalPurchased.Add(p.Total)
	}
	for _, p := range payments {
		out.TotalPaid = out.TotalPaid.Add(p.Amount)
	}
	out.Balance = out.TotalPurchased.Sub(out.TotalPaid)
	return out, nil
}
