package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/client"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/config"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/event"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/metrics"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/pin"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/store"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/watchdog"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "device-agent",
		Short: "Life-stream device agent",
		Long: `The life-stream device agent keeps an embedded device connected to
the platform: it authenticates, answers pin commands, reports sensor
values and stays alive through heartbeats and reconnects.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runAgent(configPath string) error {
	if configPath != "" {
		config.SetConfigFile(configPath)
	}
	conf, err := config.ReadConfig()
	if err != nil {
		logger.FatalF("Error occured while reading config %v", err)
		return err
	}
	loggerCallback := logger.Init()
	logger.Debug("Application initializing...")
	cleaner := event.NewCleaner()
	cleaner.Init(loggerCallback)

	shadow := store.NewStore()

	if conf.Metrics.Enabled {
		go serveMetrics(conf.Metrics.Listen)
	}

	wd := watchdog.New(conf)

	agent, err := client.NewClient(conf, client.Options{
		Shadow:   shadow,
		Watchdog: wd,
	})
	if err != nil {
		logger.FatalF("Error occured while creating device client, details: %v", err)
		return err
	}
	if err := registerPins(agent); err != nil {
		logger.FatalF("Error occured while registering pins, details: %v", err)
		return err
	}

	agent.OnConnect(func() {
		// 先把设备侧的最近取值补报给平台，再请求平台重发其侧状态
		resyncShadow(agent)
		if err := agent.SyncAll(); err != nil {
			logger.ErrorF("Fail to request pin state sync, details: %v", err)
		}
	})

	done := make(chan struct{})
	cleaner.Add(event.CallableFunc(func(ctx context.Context) error {
		agent.Stop()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))
	cleaner.Add(event.CallableFunc(func(ctx context.Context) error {
		return wd.Close()
	}))

	err = agent.Run(context.Background())
	close(done)
	return err
}

// registerPins 绑定演示用的虚拟引脚：V0上报运行时长，V1接收平台指令
func registerPins(agent *client.Client) error {
	start := time.Now()

	uptime := pin.Funcs{ReadFunc: func() ([]string, error) {
		return []string{strconv.Itoa(int(time.Since(start).Seconds()))}, nil
	}}
	if err := agent.RegisterVirtualPin(0, uptime); err != nil {
		return err
	}

	command := pin.Funcs{WriteFunc: func(value string) error {
		logger.InfoF("Pin V1 received %q from platform", value)
		return nil
	}}
	if err := agent.RegisterVirtualPin(1, command); err != nil {
		return err
	}

	// 周期上报运行时长，平台侧无需逐次请求
	return agent.SetUserTask(func() {
		if err := agent.VirtualWrite(0, strconv.Itoa(int(time.Since(start).Seconds()))); err != nil {
			logger.ErrorF("Fail to report uptime, details: %v", err)
		}
	}, 3*time.Second)
}

// resyncShadow 上报影子存储中设备侧的最近取值，断线期间的读数不丢失
func resyncShadow(agent *client.Client) {
	states, err := agent.Shadow().All()
	if err != nil {
		logger.ErrorF("Fail to load shadow states, details: %v", err)
		return
	}
	for _, state := range states {
		if state.Source != store.SourceDevice {
			continue
		}
		if err := agent.VirtualWrite(state.Pin, state.Values...); err != nil {
			logger.ErrorF("Fail to resync pin %d, details: %v", state.Pin, err)
		}
	}
}

func serveMetrics(listen string) {
	logger.InfoF("Metrics endpoint listening on %s", listen)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.ErrorF("Metrics endpoint failed, details: %v", err)
	}
}
