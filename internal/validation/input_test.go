package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.NoError(t, ValidateEmail("first.last+tag@sub.example.org"))

	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("без-собаки"))
	assert.Error(t, ValidateEmail("user@localhost"))
}

func TestValidateBudget(t *testing.T) {
	assert.NoError(t, ValidateBudget(1))
	assert.NoError(t, ValidateBudget(MaxProjectBudget))

	assert.Error(t, ValidateBudget(0))
	assert.Error(t, ValidateBudget(-100))
	assert.Error(t, ValidateBudget(MaxProjectBudget+1))
}

func TestValidateContentHash(t *testing.T) {
	assert.NoError(t, ValidateContentHash(strings.Repeat("ab", 32)))

	assert.Error(t, ValidateContentHash(""))
	assert.Error(t, ValidateContentHash("abc"))
	// Верхний регистр не принимается, хэш каноничен.
	assert.Error(t, ValidateContentHash(strings.Repeat("AB", 32)))
	assert.Error(t, ValidateContentHash(strings.Repeat("zz", 32)))
}

func TestValidateURI(t *testing.T) {
	assert.NoError(t, ValidateURI("https://example.com/doc.pdf"))
	assert.NoError(t, ValidateURI("ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"))
	assert.NoError(t, ValidateURI("s3://bucket/key"))

	assert.Error(t, ValidateURI(""))
	assert.Error(t, ValidateURI("просто текст"))
	assert.Error(t, ValidateURI("https://example.com/"+strings.Repeat("a", MaxURILength)))
}

func TestValidateNote(t *testing.T) {
	assert.NoError(t, ValidateNote(nil))

	short := "пояснение к файлу"
	assert.NoError(t, ValidateNote(&short))

	long := strings.Repeat("а", MaxNoteLength+1)
	assert.Error(t, ValidateNote(&long))
}

func TestValidateRejectionReason(t *testing.T) {
	assert.NoError(t, ValidateRejectionReason("работа не соответствует требованиям"))

	assert.Error(t, ValidateRejectionReason(""))
	assert.Error(t, ValidateRejectionReason("   "))
}
