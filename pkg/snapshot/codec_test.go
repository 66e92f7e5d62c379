package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestCodecRoundTrip(t *testing.T) {
	snap := testSnapshot(17, "KIT-JOINT", "MARQUAGE")
	snap.Events[1].DownTime.Valid = false

	got, err := decodeSnapshot(encodeSnapshot(snap))
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestCodecSkipsUnknownFields(t *testing.T) {
	b := encodeSnapshot(testSnapshot(3, "A"))
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = protowire.AppendTag(b, 100, protowire.BytesType)
	b = protowire.AppendString(b, "future column")

	got, err := decodeSnapshot(b)
	require.NoError(t, err)
	assert.Len(t, got.Events, 1)
}

func TestCodecRejectsCorruptData(t *testing.T) {
	valid := encodeSnapshot(testSnapshot(3, "A", "B"))

	var mismatched []byte
	mismatched = protowire.AppendTag(mismatched, fieldVersion, protowire.VarintType)
	mismatched = protowire.AppendVarint(mismatched, codecVersion)
	mismatched = protowire.AppendTag(mismatched, fieldFailureType, protowire.BytesType)
	mismatched = protowire.AppendString(mismatched, "A")

	tests := []struct {
		name string
		data []byte
	}{
		{name: "garbage", data: []byte("not a snapshot")},
		{name: "truncated", data: valid[:len(valid)-3]},
		{name: "empty", data: nil},
		{name: "unequal columns", data: mismatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeSnapshot(tt.data)
			require.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}
