package feed

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depthd/internal/book"
)

func TestDecodeOpenMessage(t *testing.T) {
	raw := []byte(`{
		"type": "open",
		"sequence": 42,
		"side": "sell",
		"price": "4005.02",
		"size": "0.2",
		"order_id": "d50ec984-77a8-460a-b958-66f114b0de9b"
	}`)
	var m Message
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, TypeOpen, m.Type)
	assert.Equal(t, uint64(42), m.Sequence)

	s, err := parseSide(m.Side)
	require.NoError(t, err)
	assert.Equal(t, book.Sell, s)

	rec, err := record(m.Price, m.Size, m.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 4005.02, rec.Price)
	assert.Equal(t, 0.2, rec.Size)
	assert.Equal(t, "d50ec984-77a8-460a-b958-66f114b0de9b", rec.ID.String())
}

func TestRecordRejectsMalformedFields(t *testing.T) {
	id := uuid.NewString()

	_, err := record("not-a-price", "1", id)
	assert.Error(t, err)

	_, err = record("100.00", "1,5", id)
	assert.Error(t, err)

	_, err = record("100.00", "1", "not-a-uuid")
	assert.Error(t, err)
}

func TestParseSideRejectsUnknown(t *testing.T) {
	_, err := parseSide("short")
	assert.Error(t, err)
}

func TestSnapshotSidePreservesOrder(t *testing.T) {
	first := uuid.NewString()
	second := uuid.NewString()
	recs, err := side([][3]string{
		{"100.00", "1", first},
		{"100.00", "2", second},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, first, recs[0].ID.String())
	assert.Equal(t, second, recs[1].ID.String())
}

func TestSnapshotSideFailsOnBadEntry(t *testing.T) {
	_, err := side([][3]string{
		{"100.00", "1", uuid.NewString()},
		{"bad", "1", uuid.NewString()},
	})
	assert.Error(t, err)
}
