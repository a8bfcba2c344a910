package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// VoiceSecretName is the secrets.yaml entry holding the ElevenLabs key.
const VoiceSecretName = "elevenlabs"

// Secrets is the content of ~/.speakflow/secrets.yaml: one API key per
// LLM provider, plus the ElevenLabs key under VoiceSecretName.
type Secrets struct {
	Providers map[string]Secret `yaml:"providers"`
}

// Secret is a single stored credential.
type Secret struct {
	APIKey string `yaml:"api_key"`
}

// SecretsPath returns ~/.speakflow/secrets.yaml.
func SecretsPath() (string, error) {
	dir, err := SpeakflowDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "secrets.yaml"), nil
}

// LoadSecrets reads secrets.yaml. A missing file yields no secrets.
func LoadSecrets() (Secrets, error) {
	path, err := SecretsPath()
	if err != nil {
		return Secrets{}, err
	}
	return readSecrets(path)
}

func readSecrets(path string) (Secrets, error) {
	var s Secrets
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read secrets: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse secrets: %w", err)
	}
	return s, nil
}

// Key returns the stored key for name, or "".
func (s Secrets) Key(name string) string {
	return s.Providers[name].APIKey
}

// apply copies keys onto the providers cfg knows about. Keys for unknown
// providers are ignored.
func (s Secrets) apply(cfg *LocalConfig) {
	if key := s.Key(VoiceSecretName); key != "" {
		cfg.Voice.APIKey = key
	}
	for name, p := range cfg.LLM.Providers {
		if key := s.Key(name); key != "" && p != nil {
			p.APIKey = key
		}
	}
}

// SaveSecrets merges keys into secrets.yaml, readable by the owner only.
func SaveSecrets(keys map[string]string) error {
	if _, err := EnsureSpeakflowDir(); err != nil {
		return err
	}
	path, err := SecretsPath()
	if err != nil {
		return err
	}

	s, err := readSecrets(path)
	if err != nil {
		return err
	}
	if s.Providers == nil {
		s.Providers = make(map[string]Secret, len(keys))
	}
	for name, key := range keys {
		s.Providers[name] = Secret{APIKey: key}
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}
	return writeFileAtomic(path, data, 0o600)
}
