package session

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/dynrouting/internal/models"
	"github.com/harrison/dynrouting/internal/session/sessiontest"
)

func basicRaw() *models.RawSession {
	trials := sessiontest.Concat(
		sessiontest.Repeat(sessiontest.Go("vis1", 1, true), 3),
		[]sessiontest.Trial{sessiontest.Nogo("vis2", 1, false), sessiontest.Catch(1, false)},
		sessiontest.Repeat(sessiontest.Go("sound1", 2, true), 2),
		[]sessiontest.Trial{sessiontest.Nogo("sound2", 2, true)},
	)
	return sessiontest.New([]string{"vis1", "sound1"}, trials).Raw()
}

func TestNormalize_FrameTimes(t *testing.T) {
	ns, err := Normalize(basicRaw())
	require.NoError(t, err)

	assert.Equal(t, 0.0, ns.FrameTimes[0])
	assert.Len(t, ns.FrameTimes, len(ns.FrameIntervals)+1)
	for k := 1; k < len(ns.FrameTimes); k++ {
		if ns.FrameTimes[k] < ns.FrameTimes[k-1] {
			t.Fatalf("frame times decrease at %d: %v < %v", k, ns.FrameTimes[k], ns.FrameTimes[k-1])
		}
	}
	assert.InDelta(t, float64(len(ns.FrameIntervals))/60, ns.Duration(), 1e-9)
}

func TestNormalize_TrialTiming(t *testing.T) {
	ns, err := Normalize(basicRaw())
	require.NoError(t, err)

	require.Equal(t, 8, ns.NTrials)
	assert.Len(t, ns.TrialStartTimes, 8)
	assert.Len(t, ns.StimStartTimes, 8)

	assert.InDelta(t, 1.0, ns.StimStartTimes[0], 1e-9)
	assert.InDelta(t, 2.0, ns.TrialStartTimes[1], 1e-9)
	assert.InDelta(t, 0.25, ns.ResponseTimes[0], 1e-9)
	assert.True(t, math.IsNaN(ns.ResponseTimes[3]), "no response must be NaN")

	assert.Equal(t, []int{0, 1, 2, 3, 4, 0, 1, 2}, ns.BlockTrial)
	assert.Equal(t, []string{"vis1", "vis1", "vis1", "vis1", "vis1", "sound1", "sound1", "sound1"}, ns.RewardedStim)
	require.Len(t, ns.BlockStartTimes, 2)
	assert.InDelta(t, 10.0, ns.BlockStartTimes[1], 1e-9)
	assert.InDelta(t, 11.0, ns.BlockFirstStimTimes[1], 1e-9)
	assert.Equal(t, []float64{0.1, 1.0}, ns.ResponseWindowTime)
}

func TestNormalize_TruncatesLongArraysToTrialCount(t *testing.T) {
	raw := basicRaw()
	raw.TrialStartFrame = append(raw.TrialStartFrame, 960)
	raw.TrialStim = append(raw.TrialStim, "vis1")

	ns, err := Normalize(raw)
	require.NoError(t, err)
	assert.Len(t, ns.TrialStartFrame, ns.NTrials)
	assert.Len(t, ns.TrialStim, ns.NTrials)
}

func TestNormalize_DoesNotAliasRaw(t *testing.T) {
	raw := basicRaw()
	ns, err := Normalize(raw)
	require.NoError(t, err)

	raw.TrialStim[0] = "changed"
	raw.FrameIntervals[0] = 99
	assert.Equal(t, "vis1", ns.TrialStim[0])
	assert.NotEqual(t, 99.0, ns.FrameIntervals[0])
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.RawSession)
		field  string
	}{
		{"missing frame intervals", func(r *models.RawSession) { r.FrameIntervals = nil }, "frameIntervals"},
		{"missing trial stim", func(r *models.RawSession) { r.TrialStim = nil }, "trialStim"},
		{"missing auto reward onset", func(r *models.RawSession) { r.AutoRewardOnsetFrame = nil }, "autoRewardOnsetFrame"},
		{"missing rig name", func(r *models.RawSession) { r.RigName = "" }, "rigName"},
		{"short stim start frames", func(r *models.RawSession) { r.TrialStimStartFrame = r.TrialStimStartFrame[:3] }, "trialStimStartFrame"},
		{"short responses", func(r *models.RawSession) { r.TrialResponse = r.TrialResponse[:1] }, "trialResponse"},
		{"response window size", func(r *models.RawSession) { r.ResponseWindow = []int{6} }, "responseWindow"},
		{"block out of range", func(r *models.RawSession) { r.TrialBlock[7] = 3 }, "trialBlock"},
		{"block decreases", func(r *models.RawSession) { r.TrialBlock[7] = 1 }, "trialBlock"},
		{"bad start time", func(r *models.RawSession) { r.StartTime = "yesterday" }, "startTime"},
		{"negative interval", func(r *models.RawSession) { r.FrameIntervals[5] = -0.1 }, "frameIntervals"},
		{"lick frame out of range", func(r *models.RawSession) { r.LickFrames = append(r.LickFrames, 1<<20) }, "lickFrames"},
		{"no quiescent frames", func(r *models.RawSession) { r.QuiescentViolationFrames = nil }, "quiescentViolationFrames"},
		{"encoder without counts", func(r *models.RawSession) {
			enc := "digital"
			r.RotaryEncoder = &enc
		}, "rotaryEncoderCount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := basicRaw()
			tt.mutate(raw)

			ns, err := Normalize(raw)
			require.Error(t, err)
			assert.Nil(t, ns)
			assert.True(t, IsMalformed(err))

			field, ok := MalformedField(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestNormalize_NilRecord(t *testing.T) {
	_, err := Normalize(nil)
	assert.True(t, IsMalformed(err))
}

func TestNormalize_OptionalFieldsDefault(t *testing.T) {
	raw := basicRaw()
	raw.ComputerName = nil
	raw.TaskVersion = nil
	raw.NewBlockNogoTrials = nil
	raw.NewBlockCatchTrials = nil
	raw.OptoRegions = nil

	ns, err := Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, ns.ComputerName)
	assert.Empty(t, ns.TaskVersion)
	assert.Equal(t, 0, ns.NewBlockNogoTrials)
	assert.Nil(t, ns.OptoRegions)
	assert.Nil(t, ns.TrialOptoOnsetFrame)
	assert.True(t, math.IsNaN(ns.VisContrast))
	assert.True(t, math.IsNaN(ns.SoundVolume))
	assert.Nil(t, ns.GratingOri)
	assert.Nil(t, ns.TrialGalvoVoltage)
}

func TestNormalize_GratingAndGalvo(t *testing.T) {
	t.Run("map takes precedence over legacy fields", func(t *testing.T) {
		raw := basicRaw()
		raw.GratingOri = map[string][]float64{"vis1": {0, 45}, "vis2": {90}}
		raw.GratingOriVis1 = []float64{10}

		ns, err := Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 45}, ns.GratingOri["vis1"])

		raw.GratingOri["vis1"][0] = 30
		assert.Equal(t, 0.0, ns.GratingOri["vis1"][0], "normalized map must not alias the record")
	})

	t.Run("short trial galvo array is malformed", func(t *testing.T) {
		raw := basicRaw()
		raw.TrialGalvoVoltage = [][]float64{{0, 1}}

		_, err := Normalize(raw)
		field, ok := MalformedField(err)
		require.True(t, ok)
		assert.Equal(t, "trialGalvoVoltage", field)
	})
}

func TestNormalize_LegacyQuiescentMoveFrames(t *testing.T) {
	raw := basicRaw()
	raw.QuiescentViolationFrames = nil
	raw.QuiescentMoveFrames = []int{10, 20}

	ns, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, ns.QuiescentViolationFrames)
}

func TestNormalize_RunningSpeed(t *testing.T) {
	t.Run("absent without encoder", func(t *testing.T) {
		ns, err := Normalize(basicRaw())
		require.NoError(t, err)
		assert.Nil(t, ns.RunningSpeed)
		assert.False(t, ns.HasRunningSpeed())
	})

	t.Run("analog encoder is ignored", func(t *testing.T) {
		raw := basicRaw()
		analog := "analog"
		raw.RotaryEncoder = &analog
		ns, err := Normalize(raw)
		require.NoError(t, err)
		assert.Nil(t, ns.RunningSpeed)
	})

	t.Run("digital encoder", func(t *testing.T) {
		trials := sessiontest.Repeat(sessiontest.Go("vis1", 1, true), 2)
		b := sessiontest.New([]string{"vis1"}, trials)
		b.Encoder = true

		ns, err := Normalize(b.Raw())
		require.NoError(t, err)
		require.True(t, ns.HasRunningSpeed())
		assert.True(t, math.IsNaN(ns.RunningSpeed[0]))
		want := 2.0 / 8192 * 2 * math.Pi * 8.25 * 60
		assert.InDelta(t, want, ns.RunningSpeed[1], 1e-9)
		assert.Len(t, ns.RunningSpeed, len(b.Raw().RotaryEncoderCount))
	})
}

func TestNormalize_RewardEarned(t *testing.T) {
	trials := []sessiontest.Trial{
		{Stim: "vis1", Block: 1, Response: true, Rewarded: true, AutoScheduled: true},
		sessiontest.Go("vis1", 1, true),
		sessiontest.Go("vis1", 1, false),
	}
	ns, err := Normalize(sessiontest.New([]string{"vis1"}, trials).Raw())
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, false}, ns.AutoRewardScheduled)
	assert.Equal(t, []bool{true, false, false}, ns.AutoRewarded)
	assert.Equal(t, []bool{false, true, false}, ns.RewardEarned)
}

func TestNormalize_LickDeduplication(t *testing.T) {
	ns, err := Normalize(basicRaw())
	require.NoError(t, err)

	// Six responses, each with two detections one frame apart.
	assert.Len(t, ns.LickTimes, 6)
	for i := 1; i < len(ns.LickTimes); i++ {
		assert.Greater(t, ns.LickTimes[i]-ns.LickTimes[i-1], MinLickInterval)
	}
}
