package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
	"server": {"host": "blynk.example.com", "transport": "tcp"},
	"device": {"token": "0123456789abcdef", "name": "greenhouse"},
	"debug_mode": true
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	SetConfigFile(path)
	initialized = false
	cfg, err := ReadConfig()
	if err != nil {
		t.Fatalf("读取配置失败: %v", err)
	}

	if cfg.Server.Host != "blynk.example.com" {
		t.Errorf("Server.Host 期望=blynk.example.com 实际=%s", cfg.Server.Host)
	}
	if cfg.Device.Token != "0123456789abcdef" {
		t.Errorf("Device.Token 期望=0123456789abcdef 实际=%s", cfg.Device.Token)
	}

	// 缺省值检查
	if cfg.Server.Port != 8442 {
		t.Errorf("Server.Port 期望=8442 实际=%d", cfg.Server.Port)
	}
	if cfg.Metrics.Listen != ":9101" {
		t.Errorf("Metrics.Listen 期望=:9101 实际=%s", cfg.Metrics.Listen)
	}
	if cfg.Watchdog.Device != "/dev/watchdog" {
		t.Errorf("Watchdog.Device 期望=/dev/watchdog 实际=%s", cfg.Watchdog.Device)
	}
}

func TestReadConfigDefaultPortByTransport(t *testing.T) {
	tests := []struct {
		transport string
		port      int
	}{
		{"tcp", 8442},
		{"tls", 8441},
		{"ws", 8080},
		{"", 8442},
	}

	for _, tt := range tests {
		cfg := Config{}
		cfg.Server.Transport = tt.transport
		applyDefaults(&cfg)
		if cfg.Server.Port != tt.port {
			t.Errorf("transport=%q 端口期望=%d 实际=%d", tt.transport, tt.port, cfg.Server.Port)
		}
	}
}

func TestReadConfigMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	SetConfigFile(path)
	initialized = false
	_, err := ReadConfig()
	if err == nil {
		t.Fatal("配置文件不存在时应当返回错误")
	}

	// 应当生成配置模板
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("配置模板未生成: %v", statErr)
	}
}
