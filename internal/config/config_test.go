package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 8080
  allowedOrigins:
    - http://localhost:3000
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: green
  password: secret
  name: greenchain
  sslMode: require
minio:
  endpoint: minio.internal:9000
  accessKey: ak
  secretKey: sk
  bucketName: plant-images
  useSSL: true
ledger:
  rpcUrl: https://rpc.internal
  contractAddress: "0x1111111111111111111111111111111111111111"
  relayerKey: deadbeef
ai:
  provider: openai
  apiKey: sk-test
  model: gpt-4o
  timeoutSeconds: 30
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "plant-images", cfg.Minio.BucketName)
	require.True(t, cfg.Minio.UseSSL)
	require.Equal(t, "https://rpc.internal", cfg.Ledger.RPCURL)
	require.False(t, cfg.Ledger.Gasless)
	require.Equal(t, "openai", cfg.AI.Provider)
	require.Equal(t, 30*time.Second, cfg.InferenceTimeout())
}

func TestLoadDefaultsDriver(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)
	require.Equal(t, "mysql", cfg.Database.Driver)
	require.Zero(t, cfg.InferenceTimeout())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDSNHelpers(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t,
		"green:secret@tcp(db.internal:5432)/greenchain?parseTime=true&charset=utf8mb4&loc=UTC",
		cfg.MySQLDSN())
	require.Equal(t,
		"host=db.internal port=5432 user=green password=secret dbname=greenchain sslmode=require",
		cfg.PostgresDSN())

	cfg.Database.SSLMode = ""
	require.Contains(t, cfg.PostgresDSN(), "sslmode=disable")
}
