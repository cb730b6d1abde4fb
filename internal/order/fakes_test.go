package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
)

// memState is everything the fakes persist.
type memState struct {
	pending  map[string]PendingOrder
	orders   map[string]ConfirmedOrder
	carts    map[string]cart.Cart
	products map[string]inventory.Product
	locked   [][]string
}

func newMemState() *memState {
	return &memState{
		pending:  map[string]PendingOrder{},
		orders:   map[string]ConfirmedOrder{},
		carts:    map[string]cart.Cart{},
		products: map[string]inventory.Product{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.pending {
		c.pending[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.products {
		c.products[k] = cloneProduct(v)
	}
	c.locked = append([][]string(nil), s.locked...)
	return c
}

func cloneProduct(p inventory.Product) inventory.Product {
	out := p
	out.SubProducts = make([]inventory.SubProduct, len(p.SubProducts))
	for i, sp := range p.SubProducts {
		out.SubProducts[i] = sp
		out.SubProducts[i].Sizes = append([]inventory.Size(nil), sp.Sizes...)
	}
	return out
}

// memStore hands out transactions that work on a private copy of the state
// and publish it only on Commit.
type memStore struct {
	mu        sync.Mutex
	state     *memState
	begins    int
	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

func (s *memStore) Begin(ctx context.Context) (db.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begins++
	return &memTx{store: s, state: s.state.clone()}, nil
}

func (s *memStore) snapshot() *memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// memTx satisfies db.Tx; the SQL methods are unused by the fake repositories.
type memTx struct {
	store *memStore
	state *memState
	done  bool
}

func (t *memTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("memTx: no SQL")
}

func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("memTx: no SQL")
}

func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.state = t.state
	t.store.commits++
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.rollbacks++
	return nil
}

// memPool writes straight to the committed state, like autocommit statements.
type memPool struct {
	memTx
}

func (s *memStore) pool() *memPool {
	return &memPool{memTx: memTx{store: s}}
}

func stateOf(q db.DBTX) *memState {
	switch v := q.(type) {
	case *memTx:
		return v.state
	case *memPool:
		return v.store.state
	default:
		panic(fmt.Sprintf("fake repository used outside the mem store: %T", q))
	}
}

type memPendingRepo struct{}

func (memPendingRepo) Create(ctx context.Context, q db.DBTX, p *PendingOrder) error {
	stateOf(q).pending[p.ID] = *p
	return nil
}

func (memPendingRepo) GetForUpdate(ctx context.Context, q db.DBTX, id string) (*PendingOrder, error) {
	p, ok := stateOf(q).pending[id]
	if !ok {
		return nil, fmt.Errorf("pending order %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (memPendingRepo) Delete(ctx context.Context, q db.DBTX, id string) error {
	st := stateOf(q)
	if _, ok := st.pending[id]; !ok {
		return fmt.Errorf("pending order %s: %w", id, ErrNotFound)
	}
	delete(st.pending, id)
	return nil
}

type memOrderRepo struct {
	createErr error
}

func (r memOrderRepo) Create(ctx context.Context, q db.DBTX, o *ConfirmedOrder) error {
	if r.createErr != nil {
		return r.createErr
	}
	stateOf(q).orders[o.ID] = *o
	return nil
}

func (memOrderRepo) Get(ctx context.Context, q db.DBTX, id string) (*ConfirmedOrder, error) {
	o, ok := stateOf(q).orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return &o, nil
}

func (r memOrderRepo) GetForUpdate(ctx context.Context, q db.DBTX, id string) (*ConfirmedOrder, error) {
	return r.Get(ctx, q, id)
}

func (memOrderRepo) UpdateShipment(ctx context.Context, q db.DBTX, id string, details ShipmentDetails, updatedAt time.Time) error {
	st := stateOf(q)
	o, ok := st.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	o.ShipmentDetails = details
	o.UpdatedAt = updatedAt
	st.orders[id] = o
	return nil
}

type memCartRepo struct{}

func (memCartRepo) Get(ctx context.Context, q db.DBTX, buyerID string) (*cart.Cart, error) {
	c, ok := stateOf(q).carts[buyerID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (memCartRepo) Delete(ctx context.Context, q db.DBTX, buyerID string) error {
	delete(stateOf(q).carts, buyerID)
	return nil
}

// memProductRepo backs the real inventory.Ledger.
type memProductRepo struct{}

func (memProductRepo) LockProducts(ctx context.Context, q db.DBTX, productIDs []string) error {
	st := stateOf(q)
	st.locked = append(st.locked, append([]string(nil), productIDs...))
	return nil
}

func (memProductRepo) GetForUpdate(ctx context.Context, q db.DBTX, productID string) (*inventory.Product, error) {
	p, ok := stateOf(q).products[productID]
	if !ok {
		return nil, inventory.ErrProductNotFound
	}
	c := cloneProduct(p)
	return &c, nil
}

func (memProductRepo) SaveStock(ctx context.Context, q db.DBTX, sub inventory.SubProduct, size inventory.Size) error {
	st := stateOf(q)
	for pid, p := range st.products {
		for i := range p.SubProducts {
			if p.SubProducts[i].ID != sub.ID {
				continue
			}
			p.SubProducts[i].Sold = sub.Sold
			for j := range p.SubProducts[i].Sizes {
				cur := &p.SubProducts[i].Sizes[j]
				if cur.ID != size.ID {
					continue
				}
				if cur.Version != size.Version {
					return inventory.ErrVersionConflict
				}
				cur.Qty = size.Qty
				cur.Sold = size.Sold
				cur.Version++
			}
			st.products[pid] = p
			return nil
		}
	}
	return inventory.ErrProductNotFound
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []ConfirmedOrder
	codes     map[string]string
	err       error
}

func (n *recordingNotifier) OrderConfirmed(ctx context.Context, o ConfirmedOrder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, o)
	return n.err
}

func (n *recordingNotifier) VerificationCodeIssued(ctx context.Context, p PendingOrder, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.codes == nil {
		n.codes = map[string]string{}
	}
	n.codes[p.ID] = code
	return n.err
}
