package arbitration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/arbitration-backend/internal/models"
)

func TestTierFromStats_Thresholds(t *testing.T) {
	assert.Equal(t, models.TierIneligible, TierFromStats(models.ReputationStats{}))

	assert.Equal(t, models.TierBronze, TierFromStats(models.ReputationStats{
		ProjectsCompleted: 5, TotalEarned: 1_000,
	}))
	assert.Equal(t, models.TierSilver, TierFromStats(models.ReputationStats{
		ProjectsCompleted: 20, TotalEarned: 10_000,
	}))
	assert.Equal(t, models.TierGold, TierFromStats(models.ReputationStats{
		ProjectsCompleted: 50, TotalEarned: 50_000,
	}))
}

func TestTierFromStats_BothThresholdsRequired(t *testing.T) {
	// Много проектов, но мало заработка — уровень не присваивается.
	assert.Equal(t, models.TierIneligible, TierFromStats(models.ReputationStats{
		ProjectsCompleted: 100, TotalEarned: 500,
	}))
	// Заработок серебра при проектах бронзы даёт бронзу.
	assert.Equal(t, models.TierBronze, TierFromStats(models.ReputationStats{
		ProjectsCompleted: 5, TotalEarned: 10_000,
	}))
}

func TestTierFromStats_LostDisputeDisqualifies(t *testing.T) {
	stats := models.ReputationStats{
		ProjectsCompleted: 100,
		TotalEarned:       100_000,
		DisputesLost:      1,
	}
	assert.Equal(t, models.TierIneligible, TierFromStats(stats))
}
