package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

// Утрата избираемости при пересчёте уровня: проигранный спор делает
// присяжного ineligible, и пересчёт снимает его с реестра с возвратом
// стейка вместо записи недопустимого уровня.
func TestJurorRepository_RefreshTierDeregistersIneligible(t *testing.T) {
	conn := integrationDB(t)
	ctx := context.Background()
	cfg := testArbitrationConfig()
	jurors := NewJurorRepository(conn)

	jurorID := seedJuror(t, conn, jurors, 5, 1_000, cfg.MinJurorStake)

	avail, frozen := balanceOf(t, conn, jurorID)
	assert.Zero(t, avail)
	assert.Equal(t, cfg.MinJurorStake, frozen)

	_, err := conn.Exec(`UPDATE reputation_stats SET disputes_lost = 1 WHERE account_id = $1`, jurorID)
	require.NoError(t, err)

	tier, err := jurors.RefreshTier(ctx, jurorID)
	require.NoError(t, err)
	assert.Equal(t, models.TierIneligible, tier)

	// Запись снята, стейк разморожен, возврат записан в журнал.
	var count int
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM jurors WHERE account_id = $1`, jurorID))
	assert.Zero(t, count)

	avail, frozen = balanceOf(t, conn, jurorID)
	assert.Equal(t, cfg.MinJurorStake, avail)
	assert.Zero(t, frozen)

	require.NoError(t, conn.Get(&count, `
		SELECT COUNT(*) FROM transactions WHERE account_id = $1 AND type = $2
	`, jurorID, models.TransactionTypeJurorUnstake))
	assert.Equal(t, 1, count)

	// Повторный пересчёт — уже не присяжный.
	_, err = jurors.RefreshTier(ctx, jurorID)
	assert.ErrorIs(t, err, apperror.ErrNotJuror)
}

// Пересчёт уровня не снимает присяжного, пока он заседает в активном
// раунде голосования: снятие сорвало бы кворум.
func TestJurorRepository_RefreshTierSeatedJuror(t *testing.T) {
	conn := integrationDB(t)
	ctx := context.Background()
	cfg := testArbitrationConfig()
	repo := NewDisputeRepository(conn, cfg)
	jurors := NewJurorRepository(conn)

	client := seedUser(t, conn, 5_000, 100_000)
	freelancer := seedUser(t, conn, 20_000, 0)
	projectID := seedRejectedProject(t, conn, client, freelancer, 100_000)
	for i := 0; i < 3; i++ {
		seedJuror(t, conn, jurors, 5, 1_000, cfg.MinJurorStake)
	}

	_, err := repo.Create(ctx, projectID, client, nil)
	require.NoError(t, err)
	_, err = repo.SubmitAiVerdict(ctx, projectID, models.RulingClientWins)
	require.NoError(t, err)
	_, err = repo.Appeal(ctx, projectID, freelancer, nil)
	require.NoError(t, err)

	roster := rosterOf(t, conn, projectID, 2)
	require.Len(t, roster, 3)
	seated := roster[0]
	stakedBefore := stakedOf(t, conn, seated)

	_, err = conn.Exec(`UPDATE reputation_stats SET disputes_lost = 1 WHERE account_id = $1`, seated)
	require.NoError(t, err)

	_, err = jurors.RefreshTier(ctx, seated)
	assert.ErrorIs(t, err, apperror.ErrJurorSeated)

	// Присяжный остался в реестре, стейк не тронут.
	assert.Equal(t, stakedBefore, stakedOf(t, conn, seated))

	// После закрытия раунда снятие проходит.
	expireRoundDeadline(t, conn, projectID)
	_, err = repo.FinalizeRound(ctx, projectID)
	require.NoError(t, err)

	tier, err := jurors.RefreshTier(ctx, seated)
	require.NoError(t, err)
	assert.Equal(t, models.TierIneligible, tier)

	var count int
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM jurors WHERE account_id = $1`, seated))
	assert.Zero(t, count)
}
