package kubeclient

import (
	"sigs.k8s.io/yaml"

	corev1 "k8s.io/api/core/v1"

	"github.com/pan1c/ephc/internal/apperrors"
)

func marshalYAML(ep *corev1.Endpoints) ([]byte, error) {
	blob, err := yaml.Marshal(ep)
	if err != nil {
		return nil, apperrors.Codecf("marshal endpoints", err)
	}
	return blob, nil
}

func unmarshalYAML(blob []byte, ep *corev1.Endpoints) error {
	if err := yaml.Unmarshal(blob, ep); err != nil {
		return apperrors.Codecf("unmarshal endpoints", err)
	}
	return nil
}
