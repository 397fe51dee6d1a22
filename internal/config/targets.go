package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edvin/eventrelay/internal/model"
)

type targetsFile struct {
	Targets []model.Target `yaml:"targets"`
}

// loadTargetsFile reads additional delivery targets from a YAML file:
//
//	targets:
//	  - id: audit-queue
//	    arn: arn:aws:sqs:us-east-1:123456789012:audit
func loadTargetsFile(path string) ([]model.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	var tf targetsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse targets file %s: %w", path, err)
	}
	return tf.Targets, nil
}
