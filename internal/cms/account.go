package cms

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAccountNotFound is returned when no CMS account matches.
var ErrAccountNotFound = errors.New("cms account not found")

// Account is a native CMS user.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
	CreatedAt   time.Time
}

// AccountRepository stores CMS accounts keyed by email.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// FindOrCreate returns the account for acc.Email, inserting acc when
	// none exists. An existing account keeps its role.
	FindOrCreate(ctx context.Context, acc Account) (*Account, bool, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns the Postgres-backed repository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `id, email, display_name, role, created_at`

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM cms_accounts WHERE email=$1`, normalize(email))
	return scanAccount(row)
}

func (r *accountRepository) FindOrCreate(ctx context.Context, acc Account) (*Account, bool, error) {
	const query = `
        INSERT INTO cms_accounts (email, display_name, role)
        VALUES ($1,$2,$3)
        ON CONFLICT (email) DO NOTHING
        RETURNING ` + accountColumns
	created, err := scanAccount(r.pool.QueryRow(ctx, query, normalize(acc.Email), acc.DisplayName, acc.Role))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, false, err
	}
	existing, err := r.GetByEmail(ctx, acc.Email)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	if err := row.Scan(&acc.ID, &acc.Email, &acc.DisplayName, &acc.Role, &acc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// MemoryAccountRepository is an in-process AccountRepository.
type MemoryAccountRepository struct {
	mu      sync.Mutex
	byEmail map[string]Account
}

// NewMemoryAccountRepository returns an empty store.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{byEmail: make(map[string]Account)}
}

func (r *MemoryAccountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byEmail[normalize(email)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &acc, nil
}

func (r *MemoryAccountRepository) FindOrCreate(ctx context.Context, acc Account) (*Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalize(acc.Email)
	if existing, ok := r.byEmail[key]; ok {
		return &existing, false, nil
	}
	acc.ID = uuid.NewString()
	acc.Email = key
	acc.CreatedAt = time.Now().UTC()
	r.byEmail[key] = acc
	return &acc, true, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
