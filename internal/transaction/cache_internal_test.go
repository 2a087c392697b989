package transaction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCache_TombstonesExpire(t *testing.T) {
	clock := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	c := NewCache()
	c.now = func() time.Time { return clock }

	old := uuid.New()
	recent := uuid.New()

	c.Apply(DeleteChange(old, "2024-04", clock))

	clock = clock.Add(TombstoneTTL - time.Minute)
	c.Apply(DeleteChange(recent, "2024-04", clock))
	c.Load(nil)
	assert.Len(t, c.deleted, 2)

	clock = clock.Add(2 * time.Minute)
	c.Load(nil)
	assert.Len(t, c.deleted, 1)
	assert.Contains(t, c.deleted, recent)

	clock = clock.Add(TombstoneTTL)
	c.Apply(DeleteChange(uuid.New(), "2024-04", clock))
	assert.Len(t, c.deleted, 1)
	assert.NotContains(t, c.deleted, recent)
}
