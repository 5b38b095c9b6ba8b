package observ

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordAdapterResultFiresAfterThresholdAndOnlyOnce(t *testing.T) {
	m := NewAlertMonitor(3, time.Minute, 0.40)
	now := time.Now()

	assert.Nil(t, m.RecordAdapterResult("markets", true, now))
	assert.Nil(t, m.RecordAdapterResult("markets", true, now))
	alert := m.RecordAdapterResult("markets", true, now)
	assert.NotNil(t, alert)
	assert.Equal(t, "consecutive_adapter_failures", alert.Name)

	assert.Nil(t, m.RecordAdapterResult("markets", true, now))
}

func TestRecordAdapterResultResetsOnSuccess(t *testing.T) {
	m := NewAlertMonitor(2, time.Minute, 0.40)
	now := time.Now()

	assert.Nil(t, m.RecordAdapterResult("news", true, now))
	assert.Nil(t, m.RecordAdapterResult("news", false, now))
	assert.Nil(t, m.RecordAdapterResult("news", true, now))
}

func TestRecordAdapterResultTracksAdaptersIndependently(t *testing.T) {
	m := NewAlertMonitor(1, time.Minute, 0.40)
	now := time.Now()

	alert := m.RecordAdapterResult("markets", true, now)
	assert.NotNil(t, alert)
	assert.Nil(t, m.RecordAdapterResult("news", false, now))
}

func TestRecordCandidateMarketsFiresAfterSustainedZero(t *testing.T) {
	m := NewAlertMonitor(3, 5*time.Minute, 0.40)
	start := time.Now()

	assert.Nil(t, m.RecordCandidateMarkets(0, start))
	assert.Nil(t, m.RecordCandidateMarkets(0, start.Add(time.Minute)))

	alert := m.RecordCandidateMarkets(0, start.Add(10*time.Minute))
	assert.NotNil(t, alert)
	assert.Equal(t, "zero_candidate_markets", alert.Name)

	assert.Nil(t, m.RecordCandidateMarkets(0, start.Add(11*time.Minute)))
}

func TestRecordCandidateMarketsResetsOnNonZero(t *testing.T) {
	m := NewAlertMonitor(3, 5*time.Minute, 0.40)
	start := time.Now()

	assert.Nil(t, m.RecordCandidateMarkets(0, start))
	assert.Nil(t, m.RecordCandidateMarkets(4, start.Add(time.Minute)))
	assert.Nil(t, m.RecordCandidateMarkets(0, start.Add(2*time.Minute)))
}

func TestRecordDrawdownFiresOnceAtThreshold(t *testing.T) {
	m := NewAlertMonitor(3, time.Minute, 0.40)
	now := time.Now()

	alert := m.RecordDrawdown("GROK_4", 0.42, now)
	assert.NotNil(t, alert)
	assert.Equal(t, "drawdown_stop", alert.Name)

	assert.Nil(t, m.RecordDrawdown("GROK_4", 0.45, now))
}

func TestRecordDrawdownRefiresAfterRecoveryAndReBreach(t *testing.T) {
	m := NewAlertMonitor(3, time.Minute, 0.40)
	now := time.Now()

	assert.NotNil(t, m.RecordDrawdown("GROK_4", 0.45, now))
	assert.Nil(t, m.RecordDrawdown("GROK_4", 0.20, now))
	assert.NotNil(t, m.RecordDrawdown("GROK_4", 0.50, now))
}
