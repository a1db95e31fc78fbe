package arbitration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/arbitration-backend/internal/models"
)

func votes(choices ...string) []models.DisputeVote {
	out := make([]models.DisputeVote, 0, len(choices))
	for _, c := range choices {
		out = append(out, models.DisputeVote{Choice: c})
	}
	return out
}

func TestTally_Majority(t *testing.T) {
	res, err := Tally(votes(models.VoteForClient, models.VoteForFreelancer, models.VoteForFreelancer))
	assert.NoError(t, err)
	assert.Equal(t, models.RulingFreelancerWins, res.Ruling)
	assert.Equal(t, 1, res.ForClient)
	assert.Equal(t, 2, res.ForFreelancer)
	assert.False(t, res.Unanimous)
}

func TestTally_Tie_ClientWins(t *testing.T) {
	// Равенство сохраняет статус-кво отклонённой работы.
	res, err := Tally(votes(models.VoteForClient, models.VoteForFreelancer))
	assert.NoError(t, err)
	assert.Equal(t, models.RulingClientWins, res.Ruling)
	assert.False(t, res.Unanimous)
}

func TestTally_Unanimous(t *testing.T) {
	res, err := Tally(votes(models.VoteForClient, models.VoteForClient, models.VoteForClient))
	assert.NoError(t, err)
	assert.Equal(t, models.RulingClientWins, res.Ruling)
	assert.True(t, res.Unanimous)

	res, err = Tally(votes(models.VoteForFreelancer))
	assert.NoError(t, err)
	assert.Equal(t, models.RulingFreelancerWins, res.Ruling)
	assert.True(t, res.Unanimous)
}

func TestTally_NoVotes(t *testing.T) {
	_, err := Tally(nil)
	assert.ErrorIs(t, err, ErrNoVotes)

	_, err = Tally([]models.DisputeVote{})
	assert.ErrorIs(t, err, ErrNoVotes)
}

func TestMajorityChoice(t *testing.T) {
	assert.Equal(t, models.VoteForClient, MajorityChoice(models.RulingClientWins))
	assert.Equal(t, models.VoteForFreelancer, MajorityChoice(models.RulingFreelancerWins))
}
