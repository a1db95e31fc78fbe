package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ignatzorin/arbitration-backend/internal/config"
	"github.com/ignatzorin/arbitration-backend/internal/db"
)

// Интеграционные тесты репозиториев гоняются на настоящем PostgreSQL:
// по умолчанию поднимается контейнер postgres:16, DATABASE_URL
// переиспользует уже запущенную базу. Без докера и без DATABASE_URL
// тесты пропускаются.
var (
	integrationOnce sync.Once
	integrationConn *sqlx.DB
	integrationErr  error
	testContainer   *tcpostgres.PostgresContainer
)

func TestMain(m *testing.M) {
	code := m.Run()
	if testContainer != nil {
		_ = testContainer.Terminate(context.Background())
	}
	if integrationConn != nil {
		_ = integrationConn.Close()
	}
	os.Exit(code)
}

func integrationDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("интеграционные тесты пропущены в режиме -short")
	}
	integrationOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			c, err := tcpostgres.Run(ctx, "postgres:16",
				tcpostgres.WithDatabase("arbitration_test"),
				tcpostgres.WithUsername("arbitration"),
				tcpostgres.WithPassword("arbitration"),
				tcpostgres.BasicWaitStrategies(),
			)
			if err != nil {
				integrationErr = fmt.Errorf("контейнер postgres: %w", err)
				return
			}
			testContainer = c
			dsn, err = c.ConnectionString(ctx, "sslmode=disable")
			if err != nil {
				integrationErr = fmt.Errorf("строка подключения: %w", err)
				return
			}
		}

		conn, err := db.NewPostgres(ctx, dsn)
		if err != nil {
			integrationErr = fmt.Errorf("подключение: %w", err)
			return
		}
		if err := db.RunMigrations(ctx, conn, "../../migrations"); err != nil {
			integrationErr = fmt.Errorf("миграции: %w", err)
			return
		}
		integrationConn = conn
	})
	if integrationErr != nil {
		t.Skipf("интеграционная база недоступна: %v", integrationErr)
	}
	return integrationConn
}

func testArbitrationConfig() config.ArbitrationConfig {
	return config.ArbitrationConfig{
		AiProcessingPeriod: 24 * time.Hour,
		VotingPeriod:       72 * time.Hour,
		AppealPeriod:       48 * time.Hour,
		MinAiBond:          1_000,
		MinAppealBond:      5_000,
		MinJurorStake:      10_000,
		SlashPermille:      100,
	}
}

var userSeq atomic.Int64

// seedUser создаёт пользователя с балансом и пустой репутацией.
func seedUser(t *testing.T, conn *sqlx.DB, available, frozen int64) uuid.UUID {
	t.Helper()
	n := userSeq.Add(1)
	tag := fmt.Sprintf("%d_%d", n, time.Now().UnixNano())

	var id uuid.UUID
	if err := conn.Get(&id, `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, 'x') RETURNING id
	`, fmt.Sprintf("u%s@test.local", tag), "user_"+tag); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := conn.Exec(`
		INSERT INTO account_balances (account_id, available, frozen) VALUES ($1, $2, $3)
	`, id, available, frozen); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	if _, err := conn.Exec(`
		INSERT INTO reputation_stats (account_id) VALUES ($1)
	`, id); err != nil {
		t.Fatalf("seed stats: %v", err)
	}
	return id
}

// seedRejectedProject создаёт отклонённый проект, готовый к открытию спора.
// Эскроу бюджета должен быть уже заморожен у клиента (frozen при seedUser).
func seedRejectedProject(t *testing.T, conn *sqlx.DB, clientID, freelancerID uuid.UUID, budget int64) int64 {
	t.Helper()
	var id int64
	if err := conn.Get(&id, `
		INSERT INTO projects (client_id, freelancer_id, budget, status, requirements_uri, rejection_reason)
		VALUES ($1, $2, $3, 'rejected', 'ipfs://requirements', 'работа не принята')
		RETURNING id
	`, clientID, freelancerID, budget); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return id
}

// seedJuror регистрирует присяжного с репутацией под нужный уровень.
func seedJuror(t *testing.T, conn *sqlx.DB, jurors *JurorRepository, completed int, earned, stake int64) uuid.UUID {
	t.Helper()
	id := seedUser(t, conn, stake, 0)
	if _, err := conn.Exec(`
		UPDATE reputation_stats SET projects_completed = $2, total_earned = $3 WHERE account_id = $1
	`, id, completed, earned); err != nil {
		t.Fatalf("seed juror stats: %v", err)
	}
	if _, err := jurors.Register(context.Background(), id, stake); err != nil {
		t.Fatalf("seed juror register: %v", err)
	}
	return id
}

func balanceOf(t *testing.T, conn *sqlx.DB, accountID uuid.UUID) (available, frozen int64) {
	t.Helper()
	row := struct {
		Available int64 `db:"available"`
		Frozen    int64 `db:"frozen"`
	}{}
	if err := conn.Get(&row, `
		SELECT available, frozen FROM account_balances WHERE account_id = $1
	`, accountID); err != nil {
		t.Fatalf("balance of %s: %v", accountID, err)
	}
	return row.Available, row.Frozen
}

// totalMoney — денежная масса всей базы. Переходы её сохраняют,
// единственное исключение — сжигание при слэше.
func totalMoney(t *testing.T, conn *sqlx.DB) int64 {
	t.Helper()
	var total int64
	if err := conn.Get(&total, `SELECT COALESCE(SUM(available + frozen), 0) FROM account_balances`); err != nil {
		t.Fatalf("total money: %v", err)
	}
	return total
}

func rosterOf(t *testing.T, conn *sqlx.DB, projectID int64, round int) []uuid.UUID {
	t.Helper()
	var roster []uuid.UUID
	if err := conn.Select(&roster, `
		SELECT juror_id FROM dispute_jurors WHERE dispute_id = $1 AND round = $2 ORDER BY juror_id
	`, projectID, round); err != nil {
		t.Fatalf("roster of dispute %d round %d: %v", projectID, round, err)
	}
	return roster
}

func stakedOf(t *testing.T, conn *sqlx.DB, accountID uuid.UUID) int64 {
	t.Helper()
	var staked int64
	if err := conn.Get(&staked, `SELECT staked FROM jurors WHERE account_id = $1`, accountID); err != nil {
		t.Fatalf("staked of %s: %v", accountID, err)
	}
	return staked
}

// expireRoundDeadline сдвигает дедлайн текущего раунда в прошлое.
func expireRoundDeadline(t *testing.T, conn *sqlx.DB, projectID int64) {
	t.Helper()
	if _, err := conn.Exec(`
		UPDATE disputes SET round_deadline = NOW() - INTERVAL '1 minute' WHERE project_id = $1
	`, projectID); err != nil {
		t.Fatalf("expire round deadline: %v", err)
	}
}

// expireAppealWindow закрывает окно апелляции.
func expireAppealWindow(t *testing.T, conn *sqlx.DB, projectID int64) {
	t.Helper()
	if _, err := conn.Exec(`
		UPDATE disputes SET appeal_by = NOW() - INTERVAL '1 minute' WHERE project_id = $1
	`, projectID); err != nil {
		t.Fatalf("expire appeal window: %v", err)
	}
}
