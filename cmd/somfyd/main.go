package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/config"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/console"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/debug"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/hw/gpio"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/hw/led"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/hw/serialport"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/shade"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/mqtt"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "somfy.yaml"), "path to config file (empty: defaults and environment only)")
	interactive := flag.Bool("console", false, "start an interactive command console")
	debugLevel := flag.Int("debug", -1, "override debug level (0-4)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if err := applyFlags(cfg, webPort.port(), *debugLevel); err != nil {
		log.Fatalf("invalid flag: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Serial port", cfg.Serial.Port)
	debug.Value("Mock serial", cfg.Serial.Mock)
	debug.PrintStruct("URTS config", cfg.URTS)

	var reporters shade.Reporters

	// Status LED
	if cfg.Defaults.StatusLEDPin > 0 {
		debug.Step(1, "Initializing status LED")
		gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
		if err != nil {
			log.Fatalf("init GPIO failed: %v", err)
		}
		statusLED, err := led.New(gpioDriver, cfg.Defaults.StatusLEDPin)
		if err != nil {
			log.Fatalf("init status LED failed: %v", err)
		}
		defer func() {
			statusLED.Off()
			if err := gpioDriver.Close(); err != nil {
				log.Printf("closing GPIO driver failed: %v", err)
			}
		}()
		reporters = append(reporters, statusLED)
	}

	// Web status stream
	var broadcaster *web.StatusBroadcaster
	if cfg.Defaults.WebPort > 0 {
		broadcaster = web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
		reporters = append(reporters, broadcaster)
	}

	// MQTT
	var mqttClient *mqtt.Client
	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		debug.Step(2, "Preparing MQTT client")
		mqttClient = mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Prefix:   cfg.MQTT.TopicPrefix,
		})
		debug.Value("MQTT broker", cfg.MQTT.Broker)
		debug.Value("MQTT client id", mqttClient.ClientID())
		publisher = mqtt.NewPublisher(mqttClient.Native(), cfg.MQTT.TopicPrefix, 0)
		reporters = append(reporters, publisher)
	}

	// Shades
	debug.Step(3, "Opening URTSii transport")
	transport := serialport.New(serialport.Config{
		Device:       cfg.Serial.Port,
		BaudRate:     cfg.Serial.BaudRate,
		DialTimeout:  cfg.DialTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}, cfg.Serial.Mock)
	defer transport.Close()

	ctrl := shade.NewController(transport, shade.Options{
		Reporter:          reporters,
		DefaultTravelTime: cfg.Defaults.TravelTimeS,
	})
	defer ctrl.Close()

	if err := ctrl.Connect(); err != nil {
		// Not fatal: every command retries the connection.
		debug.Errorf(err, "URTSii not reachable at %s", transport.Endpoint())
	}

	debug.Step(4, "Discovering shades")
	for _, err := range ctrl.Discover(shadeConfigs(cfg)) {
		debug.Error(err)
	}
	debug.Info("%d shade(s) configured", len(ctrl.Shades()))

	var wg sync.WaitGroup

	if mqttClient != nil {
		subscriber := mqtt.NewSubscriber(mqttClient.Native(), cfg.MQTT.TopicPrefix, ctrl)
		mqttClient.OnConnect(func() {
			if err := subscriber.SubscribeAll(); err != nil {
				debug.Error(err)
			}
			ctrl.QueryAll()
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			publisher.Start(ctx)
		}()
		if err := mqttClient.Connect(); err != nil {
			debug.Errorf(err, "MQTT broker not reachable, retrying in background")
		}
		defer mqttClient.Close()
	}

	if broadcaster != nil {
		webAddr := fmt.Sprintf(":%d", cfg.Defaults.WebPort)
		srv := web.NewServer(webAddr, broadcaster, ctrl)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				debug.Errorf(err, "web server")
				cancel()
			}
		}()
	}

	if *interactive {
		c, err := console.New(ctrl)
		if err != nil {
			log.Fatalf("init console failed: %v", err)
		}
		if broadcaster == nil {
			debug.SetOutput(c.Stdout())
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(ctx, cancel)
		}()
	}

	debug.Summary("Ready")
	<-ctx.Done()
	debug.Info("shutting down")
	wg.Wait()
}

// applyFlags overlays command line settings on the loaded configuration.
func applyFlags(cfg *config.Config, webPort, debugLevel int) error {
	if webPort > 0 {
		cfg.Defaults.WebPort = webPort
	}
	if debugLevel >= 0 {
		if debugLevel > 4 {
			return fmt.Errorf("debug must be between 0 and 4, got %d", debugLevel)
		}
		cfg.Defaults.DebugLevel = debugLevel
	}
	return nil
}

// shadeConfigs converts the configured channel list for the controller.
func shadeConfigs(cfg *config.Config) []shade.ShadeConfig {
	list := cfg.ShadeList()
	out := make([]shade.ShadeConfig, 0, len(list))
	for _, s := range list {
		out = append(out, shade.ShadeConfig{
			Address:    s.Address,
			Name:       s.Name,
			TravelTime: s.TravelTimeS,
			Position:   s.Position,
		})
	}
	return out
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
