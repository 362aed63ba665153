package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventLogExtension(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
		ok          bool
	}{
		{contentType: "text/csv", want: ".csv", ok: true},
		{contentType: "text/csv; charset=utf-8", want: ".csv", ok: true},
		{contentType: "application/xml", want: ".xes", ok: true},
		{contentType: "text/xml", want: ".xes", ok: true},
		{contentType: "application/octet-stream", ok: false},
		{contentType: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			got, ok := eventLogExtension(tt.contentType)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestMediaTypeForFile(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "statistics.csv", want: "text/csv"},
		{name: "model.bpmn", want: "application/xml"},
		{name: "log.xes", want: "application/xml"},
		{name: "parameters.json", want: "application/json"},
		{name: "configuration.yaml", want: "text/yaml"},
		{name: "results.tar.gz", want: "application/tar+gzip"},
		{name: "log.csv.gz", want: "application/gzip"},
		{name: "bundle.tar", want: "application/tar"},
		{name: "UPPER.CSV", want: "text/csv"},
		{name: "mystery.bin", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, mediaTypeForFile(tt.name))
		})
	}
}
