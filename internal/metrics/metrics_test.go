package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.NewRegistry())
}

func TestNewCollector(t *testing.T) {
	c := newTestCollector()

	require.NotNil(t, c)
	assert.NotNil(t, c.updatesTotal)
	assert.NotNil(t, c.conversionsTotal)
	assert.NotNil(t, c.conversionDuration)
	assert.NotNil(t, c.downloadsTotal)
	assert.NotNil(t, c.archivesTotal)
	assert.NotNil(t, c.sessionFiles)
	assert.NotNil(t, c.queueDepth)
}

func TestRecordConversion(t *testing.T) {
	c := newTestCollector()

	c.RecordConversion("png", "success", 120*time.Millisecond)
	c.RecordConversion("png", "success", 80*time.Millisecond)
	c.RecordConversion("mp3", "failed", time.Second)

	expected := `
		# HELP bot_conversions_total Total number of conversion attempts
		# TYPE bot_conversions_total counter
		bot_conversions_total{operation="mp3",status="failed"} 1
		bot_conversions_total{operation="png",status="success"} 2
	`
	err := testutil.CollectAndCompare(c.conversionsTotal, strings.NewReader(expected))
	assert.NoError(t, err)

	// Every attempt also lands one duration observation
	assert.Equal(t, 2, testutil.CollectAndCount(c.conversionDuration, "bot_conversion_duration_seconds"))
}

func TestRecordDownloadAndArchive(t *testing.T) {
	c := newTestCollector()

	c.RecordDownload("success")
	c.RecordDownload("too_large")
	c.RecordArchive("success")
	c.RecordArchive("empty")
	c.RecordArchive("empty")

	downloads := `
		# HELP bot_downloads_total Total number of direct link downloads
		# TYPE bot_downloads_total counter
		bot_downloads_total{status="success"} 1
		bot_downloads_total{status="too_large"} 1
	`
	assert.NoError(t, testutil.CollectAndCompare(c.downloadsTotal, strings.NewReader(downloads)))

	archives := `
		# HELP bot_archives_total Total number of session archive builds
		# TYPE bot_archives_total counter
		bot_archives_total{status="empty"} 2
		bot_archives_total{status="success"} 1
	`
	assert.NoError(t, testutil.CollectAndCompare(c.archivesTotal, strings.NewReader(archives)))
}

func TestSessionFilesGauge(t *testing.T) {
	c := newTestCollector()

	c.SetSessionFiles(5)
	assert.Equal(t, 5.0, testutil.ToFloat64(c.sessionFiles))

	c.SetSessionFiles(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.sessionFiles))
}

func TestQueueDepthGauge(t *testing.T) {
	c := newTestCollector()

	c.SetQueueDepth("message", 7)
	c.SetQueueDepth("callback", 2)
	c.SetQueueDepth("message", 3)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.queueDepth.WithLabelValues("message")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.queueDepth.WithLabelValues("callback")))
}

func TestRecordUpdate(t *testing.T) {
	c := newTestCollector()

	c.RecordUpdate("message")
	c.RecordUpdate("callback")
	c.RecordUpdate("callback")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.updatesTotal.WithLabelValues("callback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.updatesTotal.WithLabelValues("message")))
}
