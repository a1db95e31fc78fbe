// Package arbitration содержит чистое ядро протокола арбитража:
// лестницу раундов, подсчёт голосов, проверки переходов и отбор жюри.
// Пакет не обращается к базе и детерминирован — одинаковые входы
// всегда дают одинаковый результат.
package arbitration

import (
	"github.com/ignatzorin/arbitration-backend/internal/models"
	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

// MaxRounds — предел лестницы апелляций: раунд ИИ и три уровня жюри.
const MaxRounds = 4

// RoundPolicy описывает правила одного раунда арбитража.
type RoundPolicy struct {
	Round       int
	Mode        string // ai | jury
	Tier        string // уровень жюри, для ИИ-раунда пустой
	JurySize    int
	Quorum      int
	BondPercent int64 // процент от бюджета проекта
}

// Лестница раундов. Мультипликатор залога строго растёт,
// уровень жюри монотонно повышается — каждая апелляция дороже предыдущей.
var roundLadder = [MaxRounds]RoundPolicy{
	{Round: 1, Mode: models.RoundModeAi, BondPercent: 5},
	{Round: 2, Mode: models.RoundModeJury, Tier: models.TierBronze, JurySize: 3, Quorum: 2, BondPercent: 20},
	{Round: 3, Mode: models.RoundModeJury, Tier: models.TierSilver, JurySize: 5, Quorum: 3, BondPercent: 50},
	{Round: 4, Mode: models.RoundModeJury, Tier: models.TierGold, JurySize: 7, Quorum: 4, BondPercent: 100},
}

// PolicyForRound возвращает политику раунда 1..MaxRounds.
func PolicyForRound(round int) (RoundPolicy, error) {
	if round < 1 || round > MaxRounds {
		return RoundPolicy{}, apperror.Newf(apperror.ErrCodeConflict, "недопустимый раунд %d", round)
	}
	return roundLadder[round-1], nil
}

// NextRound возвращает политику следующего раунда после апелляции
// или ErrMaxRoundsReached, если лестница исчерпана.
func NextRound(current int) (RoundPolicy, error) {
	if current >= MaxRounds {
		return RoundPolicy{}, apperror.ErrMaxRoundsReached
	}
	return roundLadder[current], nil
}

// IsTerminalRound сообщает, что после раунда апелляция невозможна.
func IsTerminalRound(round int) bool {
	return round >= MaxRounds
}

// BondForRound считает залог раунда: процент от бюджета, но не ниже
// минимума. Минимумы приходят из конфигурации развёртывания.
func BondForRound(round int, budget, minAiBond, minAppealBond int64) (int64, error) {
	policy, err := PolicyForRound(round)
	if err != nil {
		return 0, err
	}

	bond := budget * policy.BondPercent / 100

	minimum := minAppealBond
	if round == 1 {
		minimum = minAiBond
	}
	if bond < minimum {
		bond = minimum
	}
	return bond, nil
}
