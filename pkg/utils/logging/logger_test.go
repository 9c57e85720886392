package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/timekeeper/pkg/utils/logging"
)

func TestNewLevels(t *testing.T) {
	testCases := []struct {
		level       string
		expectDebug bool
		expectInfo  bool
		expectWarn  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warning", false, false, true},
		{"ERROR", false, false, false},
		{"unknown", false, true, true},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.New(tc.level, buf)

			logger.Debug("plan debug")
			logger.Info("plan info")
			logger.Warn("plan warn")

			out := buf.String()
			check := func(expect bool, msg string) {
				if expect {
					gt.S(t, out).Contains(msg)
				} else {
					gt.S(t, out).NotContains(msg)
				}
			}
			check(tc.expectDebug, "plan debug")
			check(tc.expectInfo, "plan info")
			check(tc.expectWarn, "plan warn")
		})
	}
}

func TestNewWithFormatJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.NewWithFormat("info", logging.FormatJSON, buf)

	logger.Info("plan saved locally", "id", "p-1")

	var record map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	gt.Equal(t, record["msg"], any("plan saved locally"))
	gt.Equal(t, record["id"], any("p-1"))
}

func TestWithAndFrom(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf).With("component", "planner")

	ctx := logging.With(context.Background(), logger)
	retrieved := logging.From(ctx)
	gt.Equal(t, retrieved, logger)

	retrieved.Info("context message")
	gt.S(t, buf.String()).Contains("context message")
	gt.S(t, buf.String()).Contains("planner")
}

func TestFromUsesDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	custom := logging.New("warn", buf)
	logging.SetDefault(custom)

	retrieved := logging.From(context.Background())
	gt.Equal(t, retrieved, custom)

	retrieved.Warn("warning from default")
	gt.S(t, buf.String()).Contains("warning from default")
}
