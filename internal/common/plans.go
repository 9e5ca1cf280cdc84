package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"challenge-goals-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type PlanConfig struct {
	Name                string `yaml:"name"`
	MaxActiveChallenges int    `yaml:"max_active_challenges"`
}

type PlansConfig struct {
	Plans []PlanConfig `yaml:"plans"`
}

// LoadPlanConfig reads plan quotas from a YAML file. Plans the file does not
// mention keep their default quota.
func LoadPlanConfig(plansFile string) (models.PlanQuotas, error) {
	var plansPath string
	if filepath.IsAbs(plansFile) {
		plansPath = plansFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		plansPath = filepath.Join(wd, plansFile)
	}

	data, err := os.ReadFile(plansPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", plansFile, err)
	}

	var config PlansConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", plansFile, err)
	}

	quotas := models.DefaultPlanQuotas()
	for i, p := range config.Plans {
		plan, err := models.ParsePlan(p.Name)
		if err != nil {
			return nil, fmt.Errorf("plan at index %d: %w", i, err)
		}
		if p.MaxActiveChallenges < 0 {
			return nil, fmt.Errorf("plan %s has negative max_active_challenges", p.Name)
		}
		quotas[plan] = p.MaxActiveChallenges
	}

	return quotas, nil
}

// LoadPlanQuotas is LoadPlanConfig that falls back to the default quotas when
// the file does not exist.
func LoadPlanQuotas(plansFile string) (models.PlanQuotas, error) {
	quotas, err := LoadPlanConfig(plansFile)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("Plans file not found, using default quotas", zap.String("file", plansFile))
		return models.DefaultPlanQuotas(), nil
	}
	return quotas, err
}
