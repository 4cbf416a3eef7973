package config

import (
	"encoding/json"
	"errors"
	"os"
)

type Config struct {
	Server struct {
		Host      string `json:"host"`
		Port      int    `json:"port"`
		Transport string `json:"transport"` // tcp | tls | ws
		Insecure  bool   `json:"insecure"`  // 跳过TLS证书校验，仅用于调试
	} `json:"server"`
	Device struct {
		Token    string `json:"token"`
		Name     string `json:"name"`
		Firmware string `json:"firmware"`
	} `json:"device"`
	Shadow struct {
		Enabled            bool   `json:"enabled"`
		Host               string `json:"host"`
		Port               uint64 `json:"port"`
		Username           string `json:"username"`
		Password           string `json:"password"`
		Database           string `json:"database"`
		UseTLS             bool   `json:"use_tls"`
		ConnectTimeout     string `json:"connect_timeout"`
		SocketTimeout      string `json:"socket_timeout"`
		ConnectIdleTimeout string `json:"connect_idle_timeout"`
		OperationTimeout   string `json:"operation_timeout"`
		Heartbeat          string `json:"heartbeat"`
		MinPoolSize        uint64 `json:"min_pool_size"`
		MaxPoolSize        uint64 `json:"max_pool_size"`
	} `json:"shadow"`
	Metrics struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"metrics"`
	Watchdog struct {
		Enabled bool   `json:"enabled"`
		Device  string `json:"device"`
	} `json:"watchdog"`
	DebugMode bool   `json:"debug_mode"`
	LogDir    string `json:"log_dir"`
	AppName   string `json:"app_name"`
}

var config Config
var configFile = "config.json"
var initialized = false

// SetConfigFile 覆盖默认的配置文件路径，必须在ReadConfig之前调用
func SetConfigFile(path string) {
	configFile = path
}

func ReadConfig() (Config, error) {
	bytes, err := os.ReadFile(configFile)

	if err != nil {
		writer, _ := os.OpenFile(configFile, os.O_RDONLY|os.O_CREATE, 0777)
		data, _ := json.MarshalIndent(config, "", "\t")
		_, _ = writer.Write(data)
		_ = writer.Close()
		return config, errors.New("the configuration file does not exist and has been created. Please try again after editing the configuration file")
	}

	err = json.Unmarshal(bytes, &config)

	if err != nil {
		return config, errors.New("the configuration file does not contain valid JSON")
	}

	applyDefaults(&config)
	initialized = true
	return config, nil
}

func GetConfig() (Config, error) {
	if initialized {
		return config, nil
	}
	return ReadConfig()
}

// 填充缺省字段，端口按传输方式选择协议默认值
func applyDefaults(c *Config) {
	if c.Server.Transport == "" {
		c.Server.Transport = "tcp"
	}
	if c.Server.Port == 0 {
		switch c.Server.Transport {
		case "tls":
			c.Server.Port = 8441
		case "ws":
			c.Server.Port = 8080
		default:
			c.Server.Port = 8442
		}
	}
	if c.Device.Firmware == "" {
		c.Device.Firmware = "0.2.0"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9101"
	}
	if c.Watchdog.Device == "" {
		c.Watchdog.Device = "/dev/watchdog"
	}
	if c.AppName == "" {
		c.AppName = "life-stream-device-agent"
	}
}
