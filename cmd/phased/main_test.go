package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/phased/internal/phase"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 12))
	assert.Equal(t, "exactly-12ch", truncate("exactly-12ch", 12))
	assert.Equal(t, "a-much-lo...", truncate("a-much-longer-string", 12))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestYesNo(t *testing.T) {
	assert.Equal(t, "yes", yesNo(true))
	assert.Equal(t, "no", yesNo(false))
}

func TestCustomPhaseDirNote(t *testing.T) {
	assert.Empty(t, customPhaseDirNote("plan", phase.PhasePlan))
	assert.Empty(t, customPhaseDirNote("Plan", phase.PhasePlan), "sanitized names matching the phase need no note")

	note := customPhaseDirNote("Plan Phase", phase.PhasePlan)
	assert.Contains(t, note, `"plan"`)
	assert.Contains(t, note, `"plan-phase"`)
}

func TestCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{
		"init", "status", "enforce", "transition", "reset", "lock", "wave",
		"scaffold", "checkpoint", "memory",
	} {
		assert.True(t, names[want], "command %s must be registered", want)
	}

	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("workspace"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("json"))
}
