package engine

// Run manifests with hashed configuration

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const EngineVersion = "chandelier-zlsma/1"

type ConfigSnapshot struct {
	Environment string            `json:"environment"`
	ConfigHash  string            `json:"config_hash"`
	SecretsHash string            `json:"secrets_hash"`
	Timestamp   int64             `json:"timestamp"`
	Values      map[string]string `json:"values"`
}

// ConfigManager keeps one snapshot per job so a manifest can be rebuilt.
type ConfigManager struct {
	mu      sync.Mutex
	configs map[string]*ConfigSnapshot
}

func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		configs: make(map[string]*ConfigSnapshot),
	}
}

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	return fmt.Sprintf("%x", sha256.Sum256(b))
}

// SnapshotConfig records config under jobID. Secret values are only hashed.
func (cm *ConfigManager) SnapshotConfig(jobID, env string, config, secrets map[string]string) *ConfigSnapshot {
	snapshot := &ConfigSnapshot{
		Environment: env,
		ConfigHash:  hashJSON(config),
		SecretsHash: hashJSON(secrets),
		Timestamp:   time.Now().UnixMilli(),
		Values:      make(map[string]string, len(config)),
	}
	for k, v := range config {
		snapshot.Values[k] = v
	}

	cm.mu.Lock()
	cm.configs[jobID] = snapshot
	cm.mu.Unlock()
	return snapshot
}

func (cm *ConfigManager) GetSnapshot(jobID string) (*ConfigSnapshot, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	snapshot, exists := cm.configs[jobID]
	return snapshot, exists
}

// RunManifest pins everything needed to reproduce a run.
type RunManifest struct {
	JobID          string            `json:"job_id"`
	ConfigSnapshot *ConfigSnapshot   `json:"config_snapshot"`
	DataChecksums  map[string]string `json:"data_checksums"`
	StrategyHash   string            `json:"strategy_hash"`
	EngineVersion  string            `json:"engine_version"`
	CreatedAt      int64             `json:"created_at"`
}

func (cm *ConfigManager) Manifest(jobID string, strategy any, checksums map[string]string) RunManifest {
	snap, _ := cm.GetSnapshot(jobID)
	return RunManifest{
		JobID:          jobID,
		ConfigSnapshot: snap,
		DataChecksums:  checksums,
		StrategyHash:   hashJSON(strategy),
		EngineVersion:  EngineVersion,
		CreatedAt:      time.Now().UnixMilli(),
	}
}
