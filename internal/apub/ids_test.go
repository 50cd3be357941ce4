package apub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortIDRoundTrip(t *testing.T) {
	const base = "https://market.example.org"

	for _, kind := range []Kind{KindActor, KindObject, KindActivity} {
		uri := ToURI(base, kind, "abc-123")
		assert.Equal(t, "abc-123", ShortID(uri), "kind %s", kind)
	}
}

func TestToURI(t *testing.T) {
	tests := []struct {
		name string
		base string
		kind Kind
		id   string
		want string
	}{
		{"actor", "https://m.example.org", KindActor, "alice", "https://m.example.org/ap/u/alice"},
		{"object", "https://m.example.org", KindObject, "p1", "https://m.example.org/ap/o/p1"},
		{"activity", "https://m.example.org", KindActivity, "s1", "https://m.example.org/ap/s/s1"},
		{"trailing slash", "https://m.example.org/", KindActor, "alice", "https://m.example.org/ap/u/alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToURI(tt.base, tt.kind, tt.id))
		})
	}
}

func TestShortIDPassThrough(t *testing.T) {
	// an id without '/' passes through unchanged
	assert.Equal(t, "alice", ShortID("alice"))
}

func TestIsURI(t *testing.T) {
	assert.True(t, IsURI("https://m.example.org/ap/u/alice"))
	assert.True(t, IsURI("http://localhost:3001/ap/o/p1"))
	assert.False(t, IsURI("alice"))
}
