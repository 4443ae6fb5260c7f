package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository/memory"
)

const sample = `
events:
  - id: gophercon
    title: GopherCon
    description: Annual Go conference
    date: 2026-11-05
    start_time: "09:30"
    location: Hall A
    tiers:
      - {id: gc-ga, name: General, price: "0", capacity: 200}
      - {id: gc-vip, name: VIP, price: "149.99", capacity: 20}
  - id: meetup
    title: Go Meetup
    date: 2026-12-01
    location: Room 2
`

func TestLoad(t *testing.T) {
	events, err := Load(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, events, 2)

	gc := events[0]
	assert.Equal(t, "GopherCon", gc.Title)
	assert.Equal(t, 2026, gc.Date.Year())
	require.NotNil(t, gc.StartTime)
	assert.Equal(t, 9, gc.StartTime.Hour())
	assert.Equal(t, 30, gc.StartTime.Minute())
	require.Len(t, gc.Tiers, 2)
	assert.True(t, gc.Tiers[0].IsFree())
	assert.True(t, decimal.RequireFromString("149.99").Equal(gc.Tiers[1].Price))
	assert.Equal(t, "gophercon", gc.Tiers[1].EventID)

	assert.Nil(t, events[1].StartTime)
	assert.Empty(t, events[1].Tiers)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"bad date":       "events:\n  - {id: a, title: A, date: 05/11/2026}\n",
		"missing id":     "events:\n  - {title: A, date: 2026-11-05}\n",
		"negative price": "events:\n  - {id: a, title: A, date: 2026-11-05, tiers: [{id: t, name: T, price: \"-1\", capacity: 1}]}\n",
		"duplicate tier": "events:\n  - {id: a, title: A, date: 2026-11-05, tiers: [{id: t1, name: T, capacity: 1}, {id: t2, name: T, capacity: 1}]}\n",
		"unknown field":  "events:\n  - {id: a, title: A, date: 2026-11-05, venue: x}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	events, err := LoadFile(path)
	require.NoError(t, err)

	store := memory.New()
	log, _ := logtest.NewNullLogger()
	require.NoError(t, Apply(context.Background(), store, events, log))
	require.NoError(t, Apply(context.Background(), store, events, log))

	got, err := store.GetEvent(context.Background(), "gophercon")
	require.NoError(t, err)
	assert.Len(t, got.Tiers, 2)

	all, err := store.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = store.GetTier(context.Background(), "gc-vip")
	assert.NoError(t, err)
	_, err = store.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestLoad_Empty(t *testing.T) {
	events, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLoadFile_Example(t *testing.T) {
	events, err := LoadFile(filepath.Join("..", "..", "events.example.yaml"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Tiers[0].IsFree())
	assert.True(t, events[0].Tiers[1].Price.Equal(decimal.RequireFromString("25")))
	assert.Equal(t, 80, events[1].Tiers[0].Capacity)
}
