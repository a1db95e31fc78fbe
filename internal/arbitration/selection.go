package arbitration

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ignatzorin/arbitration-backend/internal/pkg/apperror"
)

// SeedSize — длина seed отбора жюри в байтах.
const SeedSize = 32

// NewSelectionSeed возвращает криптографически случайный seed.
// Seed генерируется в момент фиксации апелляции и сохраняется в записи
// раунда: до фиксации он непредсказуем для участников, после — позволяет
// детерминированно воспроизвести состав жюри.
func NewSelectionSeed() ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("arbitration: не удалось сгенерировать seed: %w", err)
	}
	return seed, nil
}

// SelectJury выбирает count различных аккаунтов из candidates.
// Кандидаты предварительно сортируются по ID, затем перемешиваются
// алгоритмом Фишера-Йетса на потоке SHA-256 от seed: один и тот же
// seed на одном и том же пуле всегда даёт один и тот же состав.
// Исключённые аккаунты (стороны спора и присяжные прошлых раундов)
// отфильтровывает вызывающая сторона до вызова.
func SelectJury(candidates []uuid.UUID, count int, seed []byte) ([]uuid.UUID, error) {
	if count <= 0 {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "размер жюри должен быть положительным")
	}
	if len(candidates) < count {
		return nil, apperror.ErrInsufficientJurors
	}

	pool := make([]uuid.UUID, len(candidates))
	copy(pool, candidates)
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].String() < pool[j].String()
	})

	stream := newSeedStream(seed)
	for i := len(pool) - 1; i > 0; i-- {
		j := int(stream.next() % uint64(i+1))
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:count], nil
}

// seedStream — детерминированный поток uint64 из SHA-256(seed || counter).
type seedStream struct {
	seed    []byte
	counter uint64
	buf     []byte
}

func newSeedStream(seed []byte) *seedStream {
	return &seedStream{seed: seed}
}

func (s *seedStream) next() uint64 {
	if len(s.buf) < 8 {
		h := sha256.New()
		h.Write(s.seed)
		var ctr [8]byte
		binary.BigEndian.PutUint64(ctr[:], s.counter)
		h.Write(ctr[:])
		s.counter++
		s.buf = h.Sum(nil)
	}
	v := binary.BigEndian.Uint64(s.buf[:8])
	s.buf = s.buf[8:]
	return v
}
