package arbitration

import (
	"errors"

	"github.com/ignatzorin/arbitration-backend/internal/models"
)

// ErrNoVotes возвращается при подсчёте пустого списка голосов.
// Вызывающая сторона применяет политику no-quorum, молчаливого решения нет.
var ErrNoVotes = errors.New("tally: нет ни одного голоса")

// TallyResult — итог подсчёта голосов раунда.
type TallyResult struct {
	Ruling        string
	Unanimous     bool
	ForClient     int
	ForFreelancer int
}

// Tally считает решение раунда простым большинством.
// Точное равенство трактуется в пользу клиента: при отсутствии
// большинства сохраняется статус-кво отклонённой работы.
func Tally(votes []models.DisputeVote) (TallyResult, error) {
	if len(votes) == 0 {
		return TallyResult{}, ErrNoVotes
	}

	res := TallyResult{}
	for _, v := range votes {
		switch v.Choice {
		case models.VoteForClient:
			res.ForClient++
		case models.VoteForFreelancer:
			res.ForFreelancer++
		}
	}

	if res.ForFreelancer > res.ForClient {
		res.Ruling = models.RulingFreelancerWins
	} else {
		res.Ruling = models.RulingClientWins
	}
	res.Unanimous = res.ForClient == 0 || res.ForFreelancer == 0

	return res, nil
}

// MajorityChoice возвращает выбор, соответствующий решению раунда.
// Нужен для начисления репутации присяжным, голосовавшим с большинством.
func MajorityChoice(ruling string) string {
	if ruling == models.RulingFreelancerWins {
		return models.VoteForFreelancer
	}
	return models.VoteForClient
}
