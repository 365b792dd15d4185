package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{"nil context", nil, UnknownValue},
		{"empty version", NewContext("", "2026-01-01"), UnknownValue},
		{"release", NewContext("1.2.0", "2026-01-01"), "1.2.0"},
		{"pre-release", NewContext("1.2.0-rc.1", ""), "1.2.0-rc.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ctx.Version())
		})
	}
}

func TestContextBuildDateAndUserAgent(t *testing.T) {
	t.Parallel()

	ctx := NewContext("1.2.0", "")
	assert.Equal(t, UnknownValue, ctx.BuildDate())
	assert.Equal(t, "proxnode/1.2.0", ctx.UserAgent())

	var nilCtx *Context
	assert.Equal(t, "proxnode/unknown", nilCtx.UserAgent())
	assert.Equal(t, UnknownValue, Current().BuildDate())
}

func TestValidationResult(t *testing.T) {
	t.Parallel()

	r := NewValidationResult()
	assert.True(t, r.Valid)
	assert.False(t, r.HasIssues())

	r.AddWarning("scan interval %s is below %s", "500ms", "1s")
	assert.True(t, r.Valid)
	assert.True(t, r.HasIssues())
	assert.Equal(t, []string{"scan interval 500ms is below 1s"}, r.Warnings)

	r.AddError("anchor id is required")
	assert.False(t, r.Valid)
	assert.Len(t, r.Errors, 1)
}
