package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPool_WithDefaults(t *testing.T) {
	type testCase struct {
		name string
		in   Pool
		want Pool
	}

	tests := []testCase{
		{
			name: "Empty",
			want: Pool{MaxOpenConns: 25, MaxIdleConns: 5, ConnMaxLifetime: 5 * time.Minute},
		},
		{
			name: "Partial",
			in:   Pool{MaxOpenConns: 10},
			want: Pool{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 5 * time.Minute},
		},
		{
			name: "Explicit",
			in:   Pool{MaxOpenConns: 4, MaxIdleConns: 2, ConnMaxLifetime: time.Minute},
			want: Pool{MaxOpenConns: 4, MaxIdleConns: 2, ConnMaxLifetime: time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.withDefaults())
		})
	}
}
