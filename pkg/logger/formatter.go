package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Correlation keys are printed first by the text formatter so a single
// emergency can be followed through interleaved output.
var correlationKeys = []string{"request_id", "emergency_id", "user_id"}

type JSONFormatter struct {
	TimestampFormat string
	AppName         string
	Version         string
}

type TextFormatter struct {
	TimestampFormat string
	AppName         string
}

func (f *JSONFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	data := make(map[string]interface{}, len(entry.Data)+6)

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = time.RFC3339Nano
	}
	data["timestamp"] = entry.Time.UTC().Format(timestampFormat)
	data["level"] = entry.Level.String()
	data["message"] = entry.Message

	if f.AppName != "" {
		data["app"] = f.AppName
	}
	if f.Version != "" {
		data["version"] = f.Version
	}
	if entry.HasCaller() {
		data["caller"] = caller(entry)
	}

	for k, v := range entry.Data {
		data[k] = jsonValue(v)
	}

	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}
	if err := json.NewEncoder(b).Encode(data); err != nil {
		return nil, fmt.Errorf("failed to marshal fields to JSON: %w", err)
	}
	return b.Bytes(), nil
}

// Durations are logged in milliseconds so dashboards can aggregate them.
func jsonValue(v interface{}) interface{} {
	switch val := v.(type) {
	case error:
		return val.Error()
	case time.Duration:
		return float64(val) / float64(time.Millisecond)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = "15:04:05.000"
	}

	fmt.Fprintf(b, "%s %-5s ", entry.Time.Format(timestampFormat), strings.ToUpper(entry.Level.String()))
	if f.AppName != "" {
		fmt.Fprintf(b, "[%s] ", f.AppName)
	}
	if entry.HasCaller() {
		fmt.Fprintf(b, "[%s] ", caller(entry))
	}

	seen := make(map[string]bool, len(correlationKeys))
	for _, k := range correlationKeys {
		if v, ok := entry.Data[k]; ok {
			fmt.Fprintf(b, "%s=%v ", k, v)
			seen[k] = true
		}
	}
	b.WriteString(entry.Message)

	fields := make([]string, 0, len(entry.Data))
	for k, v := range entry.Data {
		if seen[k] {
			continue
		}
		fields = append(fields, fmt.Sprintf("%s=%v", k, v))
	}
	if len(fields) > 0 {
		sort.Strings(fields)
		fmt.Fprintf(b, " %s", strings.Join(fields, " "))
	}
	b.WriteByte('\n')

	return b.Bytes(), nil
}

func caller(entry *logrus.Entry) string {
	return fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
}
