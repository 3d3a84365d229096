package safecast

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Uint64ToInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    uint64
		want    int64
		wantErr bool
	}{
		{name: "Valid uint64 within range", give: 42, want: 42},
		{name: "Max int64", give: math.MaxInt64, want: math.MaxInt64},
		{name: "Uint64 exceeds int64 max value", give: math.MaxInt64 + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Uint64ToInt64(tt.give)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func Test_Int64ToUint64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    int64
		want    uint64
		wantErr bool
	}{
		{name: "Valid int64 within range", give: 42, want: 42},
		{name: "Zero", give: 0, want: 0},
		{name: "Negative int64", give: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Int64ToUint64(tt.give)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func Test_BigToUint64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    *big.Int
		want    uint64
		wantErr string
	}{
		{name: "Nil is zero", give: nil, want: 0},
		{name: "Valid value", give: big.NewInt(7), want: 7},
		{name: "Negative value", give: big.NewInt(-1), wantErr: "value -1 exceeds uint64 range"},
		{
			name:    "Value exceeds uint64",
			give:    new(big.Int).Lsh(big.NewInt(1), 64),
			wantErr: "value 18446744073709551616 exceeds uint64 range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BigToUint64(tt.give)

			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
