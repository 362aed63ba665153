package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRewriteConfiguration(t *testing.T) {
	input := []byte(`
version: 5
common:
  num_final_instances: 10
train_log_path: /uploads/original.csv
test_log_path: /uploads/holdout.csv
`)

	out, err := rewriteConfiguration(input, "/srv/files/abc123.csv")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))

	require.Equal(t, "/srv/files/abc123.csv", doc["train_log_path"])
	require.Contains(t, doc, "test_log_path")
	require.Nil(t, doc["test_log_path"])
	require.Equal(t, 5, doc["version"])
}

func TestRewriteConfigurationEmptyDocument(t *testing.T) {
	out, err := rewriteConfiguration(nil, "/srv/files/abc.csv")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))
	require.Equal(t, "/srv/files/abc.csv", doc["train_log_path"])
}

func TestRewriteConfigurationMalformed(t *testing.T) {
	_, err := rewriteConfiguration([]byte("{not yaml: ["), "/srv/files/abc.csv")
	require.ErrorIs(t, err, ErrInvalid)
}
