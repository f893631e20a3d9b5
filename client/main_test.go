package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wfunc/roomserver/network"
)

func TestCommand(t *testing.T) {
	event, payload, ok := command("pos 1.5 2 left")
	assert.True(t, ok)
	assert.Equal(t, network.EventPlayerPosition, event)
	assert.Equal(t, map[string]any{
		"position":        map[string]float64{"x": 1.5, "y": 2},
		"facingDirection": "left",
	}, payload)

	event, payload, ok = command("chat a-b hello there")
	assert.True(t, ok)
	assert.Equal(t, network.EventChatMessage, event)
	assert.Equal(t, map[string]string{"groupId": "a-b", "message": "hello there"}, payload)

	event, _, ok = command("scene forest")
	assert.True(t, ok)
	assert.Equal(t, network.EventSceneTransition, event)

	event, _, ok = command("enter cave")
	assert.True(t, ok)
	assert.Equal(t, network.EventPlayerEnteredScene, event)

	for _, bad := range []string{"", "pos 1 x up", "scene", "chat a-b", "jump"} {
		_, _, ok := command(bad)
		assert.False(t, ok, bad)
	}
}
