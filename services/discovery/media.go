package discovery

import "strings"

// eventLogExtension maps an upload content type to the stored file suffix.
// Only CSV and XES (XML) event logs are accepted.
func eventLogExtension(contentType string) (string, bool) {
	switch {
	case strings.Contains(contentType, "text/csv"):
		return ".csv", true
	case strings.Contains(contentType, "application/xml"),
		strings.Contains(contentType, "text/xml"):
		return ".xes", true
	}
	return "", false
}

// mediaTypeForFile infers a response content type from a served file name.
func mediaTypeForFile(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return "text/csv"
	case strings.HasSuffix(lower, ".xml"), strings.HasSuffix(lower, ".xes"),
		strings.HasSuffix(lower, ".bpmn"):
		return "application/xml"
	case strings.HasSuffix(lower, ".json"):
		return "application/json"
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return "text/yaml"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".txt"):
		return "text/plain"
	case strings.HasSuffix(lower, ".zip"):
		return "application/zip"
	case strings.HasSuffix(lower, ".tar.gz"):
		return "application/tar+gzip"
	case strings.HasSuffix(lower, ".tar.bz2"):
		return "application/x-bzip2"
	case strings.HasSuffix(lower, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(lower, ".tar"):
		return "application/tar"
	}
	return "application/octet-stream"
}
