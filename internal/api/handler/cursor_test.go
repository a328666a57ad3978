package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someshjy/mailflow-be/internal/api/storage"
)

func TestJobCursorRoundTrip(t *testing.T) {
	original := &storage.JobCursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC),
		JobID:     "7b1d6a42-9c1f-4f7a-9f2e-0f5a1b1c2d3e",
	}

	encoded, err := EncodeJobCursor(original)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeJobCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.Equal(t, original.JobID, decoded.JobID)
	assert.Equal(t, original.CreatedAt.UnixNano(), decoded.CreatedAt.UnixNano())
}

func TestDecodeJobCursor(t *testing.T) {
	tests := []struct {
		name    string
		cursor  string
		wantNil bool
		wantErr bool
	}{
		{
			name:    "empty cursor returns nil without error",
			cursor:  "",
			wantNil: true,
		},
		{
			name:    "invalid base64",
			cursor:  "not base64!!",
			wantErr: true,
		},
		{
			name:    "wrong part count",
			cursor:  "bm90LWEtY3Vyc29y", // "not-a-cursor"
			wantErr: true,
		},
		{
			name:    "non-numeric timestamp",
			cursor:  "YWJjfGpvYi1pZA==", // "abc|job-id"
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeJobCursor(tt.cursor)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cursor)
			}
		})
	}
}
