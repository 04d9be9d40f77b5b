/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package main is the entry point for the nosod daemon.
// main 包是 nosod 守护进程的入口点。
//
// nosod loads its configuration, verifies local data, then idles in the run
// loop until a termination signal or an explicit stop request arrives.
// nosod 加载配置、校验本地数据，然后在运行循环中等待，直到收到终止信号或显式停止请求。
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noso/nosod/internal/config"
	"github.com/noso/nosod/internal/lifecycle"
	"github.com/noso/nosod/internal/logger"
	"github.com/noso/nosod/internal/monitor"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// exitCode is reported by the daemon command once it returns
var exitCode = lifecycle.ExitOK

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nosod [--log-level|-l <level>] [--config|-c <path>] [args...]",
		Short: "Noso node daemon / Noso 节点守护进程",
		Long: `nosod runs the Noso node lifecycle: it loads config.ini, checks local blocks,
then waits for CTRL-C or a service stop request and shuts down cleanly.
nosod 运行 Noso 节点生命周期：加载 config.ini，检查本地区块，
然后等待 CTRL-C 或服务停止请求并优雅关闭。

Flags:
  -l, --log-level string   trace, debug, info, warn, error, critical or off (default "info")
  -c, --config string      config file path (default "config.ini")`,
		// Arguments are handed to the config loader untouched so unknown
		// flags and positional values are ignored rather than rejected.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		RunE:               runDaemon,
	}
	root.AddCommand(newVersionCmd(), newConfigCmd())
	return root
}

// newVersionCmd shows version information
// newVersionCmd 显示版本信息
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information / 打印版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nosod\n")
			fmt.Fprintf(out, "  Version:    %s\n", Version)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// newConfigCmd prints the effective configuration as YAML
// newConfigCmd 以 YAML 形式打印生效的配置
func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "config [--log-level|-l <level>] [--config|-c <path>]",
		Short:              "Print the effective configuration / 打印生效的配置",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				return cmd.Help()
			}
			log := logger.New(logger.Options{Level: logger.WarnLevel})
			defer func() { _ = log.Close() }()

			cfg, warnings := config.NewLoader(log.Zap()).Load(args)
			for _, err := range multierr.Errors(warnings) {
				log.Zap().Warn("configuration warning, continuing with defaults", zap.Error(err))
			}

			out, err := cfg.ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// runDaemon is the main entry point for the daemon
// runDaemon 是守护进程的主入口
func runDaemon(cmd *cobra.Command, args []string) error {
	if wantsHelp(args) {
		return cmd.Help()
	}

	gin.SetMode(gin.ReleaseMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ctl := lifecycle.GetInstance(lifecycle.WithObserver(monitor.NewMetrics(reg)))

	err := serve(cmd.Context(), ctl, reg, args)
	ctl.Signals().Close()
	exitCode = ctl.ExitCode()
	return err
}

// serve drives ctl through its whole lifecycle and returns once it terminates
// serve 驱动 ctl 完成整个生命周期，终止后返回
func serve(ctx context.Context, ctl *lifecycle.Controller, gatherer prometheus.Gatherer, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Load configuration and apply the log level
	// 步骤 1：加载配置并应用日志级别
	if err := ctl.Initialise(args); err != nil {
		return err
	}

	// Step 2: Verify local data
	// 步骤 2：校验本地数据
	ctl.CheckIntegrity(ctx)

	// Step 3: Attach optional workers
	// 步骤 3：挂载可选组件
	cfg := ctl.Config()
	log := ctl.Logger().Zap()
	if cfg.MetricsAddr != "" {
		ctl.Register(monitor.NewStatusServer(monitor.StatusServerConfig{
			Addr:     cfg.MetricsAddr,
			Gatherer: gatherer,
			State:    ctl.State,
			RunID:    ctl.ID(),
			Fault:    ctl.Fault,
			Logger:   log,
		}))
	}
	if cfg.WatchConfig {
		w, err := monitor.NewConfigWatcher(monitor.ConfigWatcherConfig{
			Path:     cfg.Path,
			OnChange: ctl.RequestReload,
			Logger:   log,
		})
		if err != nil {
			log.Warn("config watcher disabled", zap.Error(err))
		} else {
			ctl.Register(w)
		}
	}

	// Step 4: Run until terminated
	// 步骤 4：运行直到终止
	return ctl.Run(ctx)
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		if a == "-h" || a == "--help" {
			return true
		}
	}
	return false
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
