// internal/handler/site_test.go
package handler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSite_InitialState(t *testing.T) {
	s := newSite(nil)

	assert.Equal(t, SiteEmpty, s.Status())
	assert.False(t, s.IsPopulated())
	assert.True(t, s.Contact())
	assert.Equal(t, NotYetAssigned, s.BinData())
	assert.Equal(t, NotYetAssigned, s.PreviousBinData())
}

func TestSite_SendDeviceToBinOnEmptyIsIgnored(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := newSite(zap.New(core))

	s.SendDeviceToBin(7)

	assert.Empty(t, s.History())
	assert.Equal(t, SiteEmpty, s.Status())
	assert.Equal(t, NotYetAssigned, s.PreviousBinData())
	assert.Equal(t, 1, logs.FilterMessageSnippet("which is empty: ignored").Len())
}

func TestSite_SendDeviceToBin(t *testing.T) {
	s := newSite(nil)
	s.SetPopulated(true)
	require.Equal(t, SiteWaitingBinData, s.Status())

	s.SendDeviceToBin(7)

	assert.Equal(t, SiteEmpty, s.Status())
	assert.Equal(t, 7, s.PreviousBinData())
	assert.Equal(t, []int{7}, s.History())
}

func TestSite_SetBinDataThenRelease(t *testing.T) {
	s := newSite(nil)
	s.SetPopulated(true)

	s.SetBinData(12)
	assert.Equal(t, SiteWaitingRelease, s.Status())
	assert.Equal(t, 12, s.BinData())
	assert.Equal(t, 12, s.BinData(), "bin data must stay until released")
	assert.Empty(t, s.History())

	require.True(t, s.ReleaseDevice())
	assert.Equal(t, NotYetAssigned, s.BinData())
	assert.Equal(t, 12, s.PreviousBinData())
	assert.Equal(t, []int{12}, s.History())
}

func TestSite_SetBinDataOnEmptyIsIgnored(t *testing.T) {
	s := newSite(nil)

	s.SetBinData(3)

	assert.Equal(t, SiteEmpty, s.Status())
	assert.Equal(t, NotYetAssigned, s.PreviousBinData())
}

func TestSite_ReleaseDeviceOnlyFromWaitingRelease(t *testing.T) {
	s := newSite(nil)
	assert.False(t, s.ReleaseDevice(), "empty site")

	s.SetPopulated(true)
	assert.False(t, s.ReleaseDevice(), "waiting bin data")
	assert.Equal(t, SiteWaitingBinData, s.Status())
	assert.Empty(t, s.History())
}

func TestSite_ReadyForRelease(t *testing.T) {
	s := newSite(nil)
	assert.True(t, s.ReadyForRelease())

	s.SetPopulated(true)
	assert.False(t, s.ReadyForRelease())

	s.SetBinData(1)
	assert.True(t, s.ReadyForRelease())
}

func TestSite_SetContactEdge(t *testing.T) {
	tests := []struct {
		name    string
		initial bool
		set     bool
		edge    bool
	}{
		{"false to true", false, true, true},
		{"true to true", true, true, false},
		{"true to false", true, false, false},
		{"false to false", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSite(nil)
			s.contact = tt.initial

			assert.Equal(t, tt.edge, s.SetContact(tt.set))
			assert.Equal(t, tt.set, s.Contact())
		})
	}
}

func TestSite_Statistics(t *testing.T) {
	s := newSite(nil)
	for _, b := range []int{3, 1, 3, -2, 1, 3} {
		s.SetPopulated(true)
		s.SendDeviceToBin(b)
	}

	want := map[int]int{-2: 1, 1: 2, 3: 3}
	if diff := cmp.Diff(want, s.Statistics()); diff != "" {
		t.Fatalf("statistics mismatch (-want +got):\n%s", diff)
	}

	// querying twice does not change the result
	if diff := cmp.Diff(want, s.Statistics()); diff != "" {
		t.Fatalf("second statistics mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, s.History(), 6)
}

func TestSite_StatisticsEmpty(t *testing.T) {
	s := newSite(nil)
	assert.Empty(t, s.Statistics())
}
