package service

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/cashdesk/internal/db"
	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// fixture bundles a migrated, truncated database with two finance agents and one player.
type fixture struct {
	pool   *pgxpool.Pool
	store  *repository.Store
	alice  *models.User
	bob    *models.User
	admin  *models.User
	player *models.Player
}

// setupTestDB connects to DATABASE_URL, migrates and truncates. Tests skip without a database.
func setupTestDB(t *testing.T) *fixture {
	t.Helper()

	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(pool.Close)

	require.NoError(t, db.RunMigrations(pool))

	for _, table := range []string{
		"activity_logs", "payment_operations", "transfer_requests", "recharge_requests",
		"redeem_requests", "company_tags", "players", "users", "idempotency_keys",
	} {
		_, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err, "truncate %s", table)
	}

	store := repository.NewStore(pool)
	q := store.Queries()
	f := &fixture{pool: pool, store: store}
	f.alice = createAgent(t, q, "alice", domain.DepartmentFinance, domain.RoleAgent)
	f.bob = createAgent(t, q, "bob", domain.DepartmentFinance, domain.RoleAgent)
	f.admin = createAgent(t, q, "root", domain.DepartmentAdmin, domain.RoleAdmin)
	f.player, err = q.CreatePlayer(ctx, "player-"+uuid.NewString()[:8], "orion")
	require.NoError(t, err)
	return f
}

func createAgent(t *testing.T, q *repository.Queries, name, department, role string) *models.User {
	t.Helper()
	u, err := q.CreateUser(context.Background(), repository.CreateUserParams{
		Username:   name,
		Email:      name + "@cashdesk.test",
		Department: department,
		Role:       role,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) redeem(t *testing.T, total domain.Amount, status string, methods ...string) *models.RedeemRequest {
	t.Helper()
	pm := make([]models.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		pm = append(pm, models.PaymentMethod{Type: m, Username: "$" + f.player.Username})
	}
	r, err := f.store.Queries().CreateRedeemRequest(context.Background(), repository.CreateRedeemRequestParams{
		PlayerID:       f.player.ID,
		TotalAmount:    total,
		PaymentMethods: pm,
		Status:         status,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) recharge(t *testing.T, amount, bonus domain.Amount) *models.RechargeRequest {
	t.Helper()
	r, err := f.store.Queries().CreateRechargeRequest(context.Background(), repository.CreateRechargeRequestParams{
		PlayerID:      f.player.ID,
		Amount:        amount,
		BonusAmount:   bonus,
		PaymentMethod: "cashapp",
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) tag(t *testing.T, method string, balance, limit domain.Amount) *models.CompanyTag {
	t.Helper()
	tag, err := f.store.Queries().CreateCompanyTag(context.Background(), repository.CreateCompanyTagParams{
		Cashtag:       "$desk-" + uuid.NewString()[:8],
		PaymentMethod: method,
		Balance:       balance,
		Limit:         limit,
		ProcuredBy:    &f.admin.ID,
	})
	require.NoError(t, err)
	return tag
}

func (f *fixture) reloadRedeem(t *testing.T, id uuid.UUID) *models.RedeemRequest {
	t.Helper()
	r, err := f.store.Queries().GetRedeemRequest(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) reloadRecharge(t *testing.T, id uuid.UUID) *models.RechargeRequest {
	t.Helper()
	r, err := f.store.Queries().GetRechargeRequest(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) reloadTag(t *testing.T, id uuid.UUID) *models.CompanyTag {
	t.Helper()
	tag, err := f.store.Queries().GetCompanyTag(context.Background(), id)
	require.NoError(t, err)
	return tag
}

func units(n int64) domain.Amount {
	return domain.NewAmount(n)
}

const testLeaseTTL = 15 * time.Minute
