package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"vesc-drive-core/utils"
)

func main() {
	var (
		transport = flag.String("transport", "serial", "Drive transport: serial or can")
		port      = flag.String("port", "/dev/ttyACM0", "Serial port device")
		baud      = flag.Int("baud", 115200, "Serial baud rate")
		iface     = flag.String("iface", "can0", "SocketCAN interface name")
		mapPath   = flag.String("map", "config/vesc_can_map.csv", "Path to CAN frame map CSV (can transport)")
		motorPath = flag.String("motor", "config/motor.yaml", "Motor parameter YAML file")
		scenPath  = flag.String("scenario", "wheel_control/constant_velocity_20s.json", "Velocity scenario JSON file")
		logLevel  = flag.String("log", "info", "trace|debug|info|warn|error|critical")
	)
	flag.Parse()

	level := parseLevel(*logLevel)

	log, err := utils.NewFileLogger("wheel_control.log", level, true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open wheel_control.log: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg := RunnerConfig{
		Transport:    *transport,
		Port:         *port,
		BaudRate:     *baud,
		Interface:    *iface,
		MapPath:      *mapPath,
		MotorPath:    *motorPath,
		ScenarioPath: *scenPath,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, cfg, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	defer runner.Close()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}

func parseLevel(s string) utils.LogLevel {
	switch s {
	case "trace":
		return utils.TRACE
	case "debug":
		return utils.DEBUG
	case "info":
		return utils.INFO
	case "warn", "warning":
		return utils.WARN
	case "error":
		return utils.ERROR
	case "critical":
		return utils.CRITICAL
	default:
		return utils.INFO
	}
}
