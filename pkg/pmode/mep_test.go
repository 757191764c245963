package pmode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMEPConstants(t *testing.T) {
	assert.Equal(t, MEP("http://docs.oasis-open.org/ebxml-msg/ebms/v3.0/ns/core/200704/oneWay"), OneWay)
	assert.Equal(t, MEP("http://docs.oasis-open.org/ebxml-msg/ebms/v3.0/ns/core/200704/twoWay"), TwoWay)
	assert.Equal(t, Binding("http://docs.oasis-open.org/ebxml-msg/ebms/v3.0/ns/core/200704/pushAndPull"), PushPull)
}

func TestBinding_CompatibleWith(t *testing.T) {
	tests := []struct {
		binding Binding
		oneWay  bool
		twoWay  bool
	}{
		{Push, true, false},
		{Pull, true, false},
		{Sync, false, true},
		{PushPush, false, true},
		{PushPull, false, true},
		{PullPush, false, true},
		{Binding("urn:unknown"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.binding.Name(), func(t *testing.T) {
			assert.Equal(t, tt.oneWay, tt.binding.CompatibleWith(OneWay))
			assert.Equal(t, tt.twoWay, tt.binding.CompatibleWith(TwoWay))
		})
	}
}

func TestBinding_RequiredLegs(t *testing.T) {
	assert.Equal(t, 1, Push.RequiredLegs())
	assert.Equal(t, 2, PullPush.RequiredLegs())
	assert.Equal(t, 0, Binding("").RequiredLegs())
	assert.True(t, PushPull.UsesPull())
	assert.False(t, PushPush.UsesPull())
	assert.True(t, Sync.IsSynchronous())
}

func TestParseMEP(t *testing.T) {
	for _, in := range []string{"oneWay", "ONE_WAY", "one-way", string(OneWay)} {
		m, err := ParseMEP(in)
		require.NoError(t, err, in)
		assert.Equal(t, OneWay, m, in)
	}

	m, err := ParseMEP("")
	require.NoError(t, err)
	assert.Equal(t, MEP(""), m)

	_, err = ParseMEP("threeWay")
	assert.Error(t, err)
}

func TestParseBinding(t *testing.T) {
	tests := map[string]Binding{
		"push":        Push,
		"PULL":        Pull,
		"sync":        Sync,
		"PUSH_PUSH":   PushPush,
		"pushAndPull": PushPull,
		"pull-push":   PullPush,
		string(Push):  Push,
	}
	for in, want := range tests {
		got, err := ParseBinding(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseBinding("carrier-pigeon")
	assert.Error(t, err)
}
