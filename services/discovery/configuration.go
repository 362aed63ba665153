package discovery

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// rewriteConfiguration points the submitted configuration's train_log_path
// at the stored event log and clears test_log_path, which submissions
// cannot carry.
func rewriteConfiguration(content []byte, eventLogPath string) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse configuration: %v", ErrInvalid, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	doc["train_log_path"] = eventLogPath
	doc["test_log_path"] = nil

	return yaml.Marshal(doc)
}
