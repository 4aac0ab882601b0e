package kubectlcluster

import (
	"sigs.k8s.io/yaml"

	"github.com/pan1c/ephc/internal/apperrors"
)

type metaOnly struct {
	Metadata struct {
		ResourceVersion string `json:"resourceVersion"`
	} `json:"metadata"`
}

func extractResourceVersion(blob []byte) (string, error) {
	var m metaOnly
	if err := yaml.Unmarshal(blob, &m); err != nil {
		return "", apperrors.Codecf("extract resourceVersion", err)
	}
	return m.Metadata.ResourceVersion, nil
}
