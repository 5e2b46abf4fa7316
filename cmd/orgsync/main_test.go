package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgs-sync/internal/auth"
)

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"gateway", "console", "hash-password"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{name: "argument", args: []string{"hash-password", "hunter2"}},
		{name: "stdin", args: []string{"hash-password"}, stdin: "hunter2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCmd()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetIn(strings.NewReader(tt.stdin))
			root.SetArgs(tt.args)

			require.NoError(t, root.Execute())
			hash := strings.TrimSpace(out.String())
			assert.True(t, auth.CheckPassword("hunter2", hash))
		})
	}
}

func TestHashPassword_Empty(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("\n"))
	root.SetArgs([]string{"hash-password"})
	assert.Error(t, root.Execute())
}
