package config

import (
	"os"
	"testing"

	"github.com/imdario/mergo"
	"github.com/jesseduffield/yaml"
)

func TestNewAppConfigDefaults(t *testing.T) {
	conf, err := NewAppConfig("hsab-test-defaults", "version", "commit", "date", "buildSource", false, "projectDir")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	defer os.RemoveAll(conf.ConfigDir)

	if conf.UserConfig.MaxRecursion != 1000 {
		t.Fatalf("Expected default MaxRecursion 1000, got %d", conf.UserConfig.MaxRecursion)
	}
	if !conf.UserConfig.ShowBanner {
		t.Fatalf("Expected default ShowBanner true")
	}
}

func TestWritingToConfigFile(t *testing.T) {
	conf, err := NewAppConfig("hsab-test-write", "version", "commit", "date", "buildSource", false, "projectDir")
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	defer os.RemoveAll(conf.ConfigDir)

	testFn := func(t *testing.T, ac *AppConfig, newValue int) {
		t.Helper()
		updateFn := func(uc *UserConfig) error {
			uc.MaxRecursion = newValue
			return nil
		}

		if err := ac.WriteToUserConfig(updateFn); err != nil {
			t.Fatalf("Unexpected error: %s", err)
		}

		file, err := os.OpenFile(ac.ConfigFilename(), os.O_RDONLY, 0o660)
		if err != nil {
			t.Fatalf("Unexpected error: %s", err)
		}
		defer file.Close()

		sampleUC := UserConfig{}
		if err := yaml.NewDecoder(file).Decode(&sampleUC); err != nil {
			t.Fatalf("Unexpected error: %s", err)
		}

		if sampleUC.MaxRecursion != newValue {
			t.Fatalf("Got %v, Expected %v\n", sampleUC.MaxRecursion, newValue)
		}
	}

	testFn(t, conf, 42)
	testFn(t, conf, 7)
}

func TestUserConfigMergeOverridesDefaults(t *testing.T) {
	base := GetDefaultConfig()
	fromFile := UserConfig{MaxRecursion: 50}

	if err := mergo.Merge(&base, fromFile, mergo.WithOverride); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if base.MaxRecursion != 50 {
		t.Fatalf("Expected merged MaxRecursion 50, got %d", base.MaxRecursion)
	}
	if base.PreviewLength != 5 {
		t.Fatalf("Expected untouched PreviewLength to survive the merge, got %d", base.PreviewLength)
	}
}
