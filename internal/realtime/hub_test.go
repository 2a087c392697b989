package realtime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/comanda/internal/realtime"
	"github.com/MrJamesThe3rd/comanda/internal/transaction"
)

func TestHub_FanOut(t *testing.T) {
	hub := realtime.NewHub()

	a := hub.Subscribe(4)
	b := hub.Subscribe(4)

	defer b.Close()

	change := transaction.DeleteChange(uuid.New(), "2024-05", time.Now())
	hub.Publish(change)

	assert.Equal(t, change.ID, (<-a.C).ID)
	assert.Equal(t, change.ID, (<-b.C).ID)

	a.Close()
	a.Close()

	_, open := <-a.C
	assert.False(t, open)

	hub.Publish(change)
	assert.Equal(t, change.ID, (<-b.C).ID)
}

func TestHub_SlowSubscriberGetsGapSignal(t *testing.T) {
	hub := realtime.NewHub()

	slow := hub.Subscribe(1)
	defer slow.Close()

	fast := hub.Subscribe(8)
	defer fast.Close()

	for range 5 {
		hub.Publish(transaction.DeleteChange(uuid.New(), "2024-05", time.Now()))
	}

	assert.Len(t, slow.C, 1)
	assert.Len(t, slow.Gaps, 1)
	assert.Len(t, fast.C, 5)
	assert.Empty(t, fast.Gaps)
}

func TestHub_WatchSeesEveryChange(t *testing.T) {
	hub := realtime.NewHub()

	months := map[string]int{}
	stop := hub.Watch(func(ch transaction.Change) {
		months[ch.Month]++
	})

	sub := hub.Subscribe(1)
	defer sub.Close()

	for i := range 120 {
		month := time.Date(2024, time.Month(i%12+1), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
		hub.Publish(transaction.DeleteChange(uuid.New(), month, time.Now()))
	}

	assert.Len(t, months, 12)
	assert.Equal(t, 10, months["2024-12"])

	stop()
	hub.Publish(transaction.DeleteChange(uuid.New(), "2024-12", time.Now()))
	assert.Equal(t, 10, months["2024-12"])
}

func TestHub_Close(t *testing.T) {
	hub := realtime.NewHub()

	sub := hub.Subscribe(1)
	hub.Close()
	sub.Close()

	_, open := <-sub.C
	assert.False(t, open)

	late := hub.Subscribe(1)
	_, open = <-late.C
	assert.False(t, open)

	called := false
	hub.Watch(func(transaction.Change) { called = true })
	hub.Publish(transaction.DeleteChange(uuid.New(), "2024-05", time.Now()))
	assert.False(t, called)
}

func TestDecode(t *testing.T) {
	tx := &transaction.Transaction{ID: uuid.New(), Month: "2024-05"}

	insert, err := json.Marshal(transaction.InsertChange(tx))
	require.NoError(t, err)

	got, err := realtime.Decode(string(insert))
	require.NoError(t, err)
	assert.Equal(t, transaction.OpInsert, got.Op)
	assert.Equal(t, tx.ID, got.Transaction.ID)

	type testCase struct {
		name    string
		payload string
	}

	for _, tt := range []testCase{
		{name: "NotJSON", payload: "{"},
		{name: "UnknownOp", payload: `{"op":"upsert","id":"` + tx.ID.String() + `"}`},
		{name: "UpdateWithoutBody", payload: `{"op":"update","id":"` + tx.ID.String() + `"}`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := realtime.Decode(tt.payload)
			assert.Error(t, err)
		})
	}
}
