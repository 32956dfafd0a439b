package hooks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_FireOrder(t *testing.T) {
	r := NewRegistry()
	var calls []string

	record := func(name string) Handler {
		return func(ctx context.Context, trigger Trigger, event SaveEvent) {
			calls = append(calls, name)
		}
	}

	require.NoError(t, r.Subscribe(SavePost, 20, record("late")))
	require.NoError(t, r.Subscribe(SavePost, 10, record("first")))
	require.NoError(t, r.Subscribe(SavePost, 10, record("second")))

	require.NoError(t, r.Fire(context.Background(), SavePost, SaveEvent{ID: "1", Status: "publish"}))
	assert.Equal(t, []string{"first", "second", "late"}, calls)
}

func TestRegistry_FirePassesEvent(t *testing.T) {
	r := NewRegistry()
	var got SaveEvent
	var gotTrigger Trigger

	require.NoError(t, r.Subscribe(ACFSavePost, 20, func(ctx context.Context, trigger Trigger, event SaveEvent) {
		gotTrigger = trigger
		got = event
	}))

	require.NoError(t, r.Fire(context.Background(), ACFSavePost, SaveEvent{ID: "7", Status: "draft"}))
	assert.Equal(t, ACFSavePost, gotTrigger)
	assert.Equal(t, SaveEvent{ID: "7", Status: "draft"}, got)
}

func TestRegistry_FireWithoutHandlers(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Fire(context.Background(), SavePage, SaveEvent{ID: "1"}))
	assert.Equal(t, 0, r.Count(SavePage))
}

func TestRegistry_UnknownTrigger(t *testing.T) {
	r := NewRegistry()

	err := r.Subscribe(Trigger("delete_post"), DefaultPriority, func(context.Context, Trigger, SaveEvent) {})
	var unknown *ErrUnknownTrigger
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "delete_post", unknown.Trigger)

	assert.Error(t, r.Fire(context.Background(), Trigger("delete_post"), SaveEvent{}))
}

func TestParseTrigger(t *testing.T) {
	trigger, err := ParseTrigger("save_page")
	require.NoError(t, err)
	assert.Equal(t, SavePage, trigger)

	_, err = ParseTrigger("publish")
	assert.Error(t, err)
}

func TestSaveEvent_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    SaveEvent
		wantErr bool
	}{
		{name: "String ID", body: `{"id":"42","status":"publish"}`, want: SaveEvent{ID: "42", Status: "publish"}},
		{name: "Numeric ID", body: `{"id":42,"status":"publish"}`, want: SaveEvent{ID: "42", Status: "publish"}},
		{name: "Missing ID", body: `{"status":"draft"}`, want: SaveEvent{Status: "draft"}},
		{name: "Null ID", body: `{"id":null,"status":"draft"}`, want: SaveEvent{Status: "draft"}},
		{name: "Boolean ID", body: `{"id":true,"status":"publish"}`, wantErr: true},
		{name: "Object ID", body: `{"id":{"n":1},"status":"publish"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SaveEvent
			err := json.Unmarshal([]byte(tt.body), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
