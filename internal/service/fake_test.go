package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mmeshcher/marketplace-sellers/internal/model"
	"github.com/mmeshcher/marketplace-sellers/internal/repository"
)

// memRepo — хранилище в памяти с семантикой PostgresRepository.
type memRepo struct {
	mu          sync.Mutex
	sellers     map[string]*model.Seller
	withdrawals map[string][]model.Withdrawal
	products    map[int64]*model.Product
	orders      map[int64]*model.Order
	nextID      int64

	createSellerErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		sellers:     map[string]*model.Seller{},
		withdrawals: map[string][]model.Withdrawal{},
		products:    map[int64]*model.Product{},
		orders:      map[int64]*model.Order{},
	}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) Close() error { return nil }

func (m *memRepo) CreateSeller(_ context.Context, s *model.Seller) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createSellerErr != nil {
		return m.createSellerErr
	}
	for _, other := range m.sellers {
		if other.Email == s.Email {
			return repository.ErrDuplicateEmail
		}
		if other.NationalID == s.NationalID {
			return repository.ErrDuplicateNationalID
		}
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	m.sellers[s.ID] = &cp
	return nil
}

func (m *memRepo) SellerExists(_ context.Context, email, nationalID string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var emailTaken, idTaken bool
	for _, s := range m.sellers {
		emailTaken = emailTaken || s.Email == email
		idTaken = idTaken || s.NationalID == nationalID
	}
	return emailTaken, idTaken, nil
}

func (m *memRepo) get(id string) (*model.Seller, error) {
	s, ok := m.sellers[id]
	if !ok {
		return nil, repository.ErrSellerNotFound
	}
	return s, nil
}

func (m *memRepo) GetSellerByID(_ context.Context, id string) (*model.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) GetSellerByEmail(_ context.Context, email string) (*model.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sellers {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrSellerNotFound
}

func (m *memRepo) SetSellerOTP(_ context.Context, id, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.OTP = model.EmailOTP{Code: code, ExpiresAt: &expiresAt}
	return nil
}

func (m *memRepo) IncrementOTPAttempts(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.get(id)
	if err != nil {
		return 0, err
	}
	s.OTP.Attempts++
	return s.OTP.Attempts, nil
}

func (m *memRepo) MarkEmailVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.IsEmailVerified = true
	s.OTP = model.EmailOTP{}
	return nil
}

func (m *memRepo) UpdateSellerStatus(_ context.Context, id string, change model.StatusChange) (*model.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.Status = change.Status
	s.IsApproved = change.Status == model.SellerStatusApproved
	if change.ApprovedAt != nil {
		s.ApprovedAt = change.ApprovedAt
	}
	if change.RejectionReason != nil {
		s.RejectionReason = *change.RejectionReason
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) UpdateSellerProfile(_ context.Context, id string, upd model.ProfileUpdate) (*model.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.Name, upd.Name)
	set(&s.Phone, upd.Phone)
	set(&s.StoreName, upd.StoreName)
	set(&s.StoreDescription, upd.StoreDescription)
	set(&s.Address, upd.Address)
	if upd.Bank != nil {
		s.Bank = *upd.Bank
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) UpdateSellerPassword(_ context.Context, id string, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.get(id)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (m *memRepo) ListSellers(_ context.Context, f model.SellerFilter) ([]model.Seller, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Seller
	for _, s := range m.sellers {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *memRepo) GetSellerAnalytics(_ context.Context, sellerID string) (*model.SellerAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.get(sellerID)
	if err != nil {
		return nil, err
	}
	a := &model.SellerAnalytics{
		TotalEarnings:    s.TotalEarnings,
		TotalOrders:      s.TotalOrders,
		TotalProducts:    s.TotalProducts,
		AvailableBalance: model.AvailableBalance(s.TotalEarnings, m.withdrawals[sellerID]),
		OrdersByStatus:   map[model.OrderStatus]int64{},
	}
	for _, o := range m.orders {
		if o.SellerID == sellerID {
			a.OrdersByStatus[o.Status]++
		}
	}
	return a, nil
}

func (m *memRepo) GetWithdrawals(_ context.Context, sellerID string) ([]model.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]model.Withdrawal(nil), m.withdrawals[sellerID]...), nil
}

func (m *memRepo) CreateWithdrawal(_ context.Context, sellerID string, amount int64) (*model.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.get(sellerID)
	if err != nil {
		return nil, err
	}
	if amount > model.AvailableBalance(s.TotalEarnings, m.withdrawals[sellerID]) {
		return nil, repository.ErrInsufficientBalance
	}
	w := model.Withdrawal{
		ID:          m.id(),
		SellerID:    sellerID,
		Amount:      amount,
		Status:      model.WithdrawalStatusPending,
		Bank:        s.Bank,
		RequestedAt: time.Now(),
	}
	m.withdrawals[sellerID] = append(m.withdrawals[sellerID], w)
	return &w, nil
}

func (m *memRepo) CreateProduct(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.get(p.SellerID)
	if err != nil {
		return err
	}
	p.ID = m.id()
	cp := *p
	m.products[p.ID] = &cp
	s.TotalProducts++
	return nil
}

func (m *memRepo) GetProduct(_ context.Context, id int64) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) ListProducts(_ context.Context, sellerID string, _ model.Page) ([]model.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Product
	for _, p := range m.products {
		if p.SellerID == sellerID {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) UpdateProduct(_ context.Context, id int64, upd model.ProductUpdate) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) DeleteProduct(_ context.Context, id int64, sellerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok || p.SellerID != sellerID {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	if s, err := m.get(sellerID); err == nil && s.TotalProducts > 0 {
		s.TotalProducts--
	}
	return nil
}

func (m *memRepo) ListOrders(_ context.Context, sellerID string, status model.OrderStatus, _ model.Page) ([]model.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Order
	for _, o := range m.orders {
		if o.SellerID == sellerID && (status == "" || o.Status == status) {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) GetOrder(_ context.Context, id int64) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memRepo) UpdateOrderStatus(_ context.Context, id int64, status model.OrderStatus) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if o.Status.Terminal() {
		return nil, repository.ErrOrderFinalized
	}
	o.Status = status
	if status == model.OrderStatusDelivered {
		if s, err := m.get(o.SellerID); err == nil {
			s.TotalEarnings += o.TotalAmount
			s.TotalOrders++
		}
	}
	cp := *o
	return &cp, nil
}

func (m *memRepo) addOrder(o model.Order) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	o.ID = m.id()
	m.orders[o.ID] = &o
	return o.ID
}

func (m *memRepo) seller(id string) model.Seller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sellers[id]
}

// stubNotifier записывает отправленные письма.
type stubNotifier struct {
	mu sync.Mutex

	otpErr    error
	approvals []string
	rejects   map[string]string
	otps      map[string]string
	otpTTL    time.Duration
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{rejects: map[string]string{}, otps: map[string]string{}}
}

func (n *stubNotifier) SendOTP(_ context.Context, to, _, code string, ttl time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.otpErr != nil {
		return n.otpErr
	}
	n.otps[to] = code
	n.otpTTL = ttl
	return nil
}

func (n *stubNotifier) SendApproval(_ context.Context, to, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approvals = append(n.approvals, to)
	return nil
}

func (n *stubNotifier) SendRejection(_ context.Context, to, _, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejects[to] = reason
	return nil
}

func (n *stubNotifier) rejection(to string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.rejects[to]
	return r, ok
}

func (n *stubNotifier) approvalCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.approvals)
}

// recordingPublisher запоминает темы опубликованных событий.
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return p.err
}

var errProvider = errors.New("provider unavailable")
