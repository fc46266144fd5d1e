package emulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeSeedIsVisibleToReadRAM(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.Seed(func(ram *[65536]byte) {
		ram[100] = 42
	})

	ram, err := f.ReadRAM(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(42), ram[100])
}

func TestFakeReadRAMReturnsASnapshotNotALiveView(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	ram, err := f.ReadRAM(ctx)
	require.NoError(t, err)

	f.Seed(func(r *[65536]byte) { r[0] = 1 })

	assert.Equal(t, byte(0), ram[0], "a previously returned snapshot must not see later seeds")
}

func TestFakePressButtonRecordsLog(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	require.NoError(t, f.PressButton(ctx, "up", 6))
	require.NoError(t, f.PressButton(ctx, "a", 0))

	assert.Equal(t, []string{"up", "a"}, f.PressLog())
}

func TestFakeClose(t *testing.T) {
	f := NewFake()
	assert.NoError(t, f.Close())
}
