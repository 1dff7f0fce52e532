package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mautops/formflow-gin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault 测试默认配置
func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "formflow", cfg.Database.DBName)
	assert.Equal(t, "formflow", cfg.JWT.Issuer)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)

	// 开发环境默认详细日志
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	assert.False(t, cfg.IsProduction())
}

// TestLoad_FromFile 测试从配置文件加载
func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
env: production
server:
  host: 127.0.0.1
  port: 9090
database:
  driver: sqlite
  sqlite_path: /tmp/test.db
jwt:
  secret: test-secret
  issuer: test-issuer
log:
  level: error
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Database.SQLitePath)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, "error", cfg.Log.Level)

	// 未覆盖的键保留默认值
	assert.Equal(t, "formflow", cfg.Database.DBName)
}

// TestLoad_MissingFile 测试指定的配置文件不存在
func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

// TestLoad_EnvOverride 测试环境变量覆盖
func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9191")
	t.Setenv("APP_DATABASE_DRIVER", "sqlite")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

// TestWatcher 测试配置监听器基础行为
func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: development\n"), 0644))

	cfg := config.Default()
	watcher := config.NewWatcher(cfg, path)
	watcher.OnChange(func(updated *config.Config) {})

	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	assert.Equal(t, cfg, watcher.Current())
}

// TestWatcher_StartMissingFile 测试监听不存在的文件
func TestWatcher_StartMissingFile(t *testing.T) {
	watcher := config.NewWatcher(config.Default(), "/nonexistent/config.yaml")
	assert.Error(t, watcher.Start())
}
