package arbitration

import (
	"github.com/ignatzorin/arbitration-backend/internal/models"
)

// Пороги уровней присяжных: завершённые проекты и суммарный заработок
// в минимальных единицах валюты.
const (
	bronzeProjects = 5
	bronzeEarned   = 1_000
	silverProjects = 20
	silverEarned   = 10_000
	goldProjects   = 50
	goldEarned     = 50_000
)

// TierFromStats вычисляет уровень присяжного по счётчикам репутации.
// Любой проигранный спор лишает права быть присяжным.
// Уровень пересчитывается только при явных
// stake/unstake, не в ходе обработки споров.
func TierFromStats(stats models.ReputationStats) string {
	if stats.DisputesLost > 0 {
		return models.TierIneligible
	}

	switch {
	case stats.ProjectsCompleted >= goldProjects && stats.TotalEarned >= goldEarned:
		return models.TierGold
	case stats.ProjectsCompleted >= silverProjects && stats.TotalEarned >= silverEarned:
		return models.TierSilver
	case stats.ProjectsCompleted >= bronzeProjects && stats.TotalEarned >= bronzeEarned:
		return models.TierBronze
	default:
		return models.TierIneligible
	}
}
