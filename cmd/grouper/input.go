package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kimipsen/grouper/pkg/models"
)

// inputFile is a session plus default settings for the run. JSON files parse
// too since JSON is valid YAML.
type inputFile struct {
	models.Session `yaml:",inline"`
	Settings       models.GroupingSettings `yaml:"settings"`
}

func loadInput(path string) (*inputFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return parseInput(data)
}

func parseInput(data []byte) (*inputFile, error) {
	var in inputFile
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}

	for i, p := range in.People {
		if p.ID == "" {
			in.People[i].ID = fmt.Sprintf("p%d", i+1)
		}
	}
	if err := models.CheckPeople(in.People); err != nil {
		return nil, err
	}
	if in.Preferences == nil {
		in.Preferences = models.PreferenceMap{}
	}
	return &in, nil
}
