// Command rf433-receiver decodes 433MHz remote-control codes from a receiver
// module on a GPIO line and publishes start/continue/stop events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/rf433-receiver/internal/decoder"
	"github.com/sweeney/rf433-receiver/internal/gpio"
	"github.com/sweeney/rf433-receiver/internal/mqtt"
	"github.com/sweeney/rf433-receiver/internal/pipeline"
	"github.com/sweeney/rf433-receiver/internal/protocol"
	"github.com/sweeney/rf433-receiver/internal/receiver"
	"github.com/sweeney/rf433-receiver/internal/status"
	"github.com/sweeney/rf433-receiver/internal/web"
)

type options struct {
	chip         string
	pin          int
	backend      string
	protocols    string
	events       string
	pulseQueue   int
	eventQueue   int
	eventTimeout time.Duration
	broker       string
	clientID     string
	heartbeat    time.Duration
	httpAddr     string
	wsBroker     string
}

func main() {
	var opts options
	flag.StringVar(&opts.chip, "chip", gpio.DefaultChip, "GPIO chip name (gpiocdev backend)")
	flag.IntVar(&opts.pin, "pin", gpio.DefaultPin, "BCM pin number of the receiver data line")
	flag.StringVar(&opts.backend, "gpio-backend", gpio.BackendCdev, "GPIO backend: gpiocdev or periph")
	flag.StringVar(&opts.protocols, "protocols", protocol.Default, "Comma-separated protocols to decode (see -list-protocols)")
	flag.StringVar(&opts.events, "events", "all", "Events to publish: all, or any of start,continue,stop")
	flag.IntVar(&opts.pulseQueue, "pulse-queue", pipeline.DefaultPulseQueueSize, "Pulse queue capacity")
	flag.IntVar(&opts.eventQueue, "event-queue", pipeline.DefaultEventQueueSize, "Event queue capacity")
	flag.DurationVar(&opts.eventTimeout, "event-timeout", pipeline.DefaultEventTimeout, "How long the decoder waits for event queue space")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&opts.clientID, "client-id", "rf433-receiver", "MQTT client ID")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	ws := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error")
	listProtocols := flag.Bool("list-protocols", false, "Print the known protocols and exit")

	flag.Parse()

	if err := setupLogging(*logLevel); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *listProtocols {
		printProtocols(os.Stdout)
		return
	}

	opts.wsBroker = resolveWSBroker(*ws, opts.broker)
	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

func printProtocols(w io.Writer) {
	for _, name := range protocol.Names() {
		cfg, _ := protocol.Lookup(name)
		switch c := cfg.(type) {
		case decoder.AdaptiveConfig:
			fmt.Fprintf(w, "%-10s %s adaptive: sync %d clocks, bit %d clocks, %d bits\n",
				name, mqtt.FormatProtocol(c.ID), c.SyncClock, c.BitClock, c.CodeBits)
		case decoder.FixedConfig:
			fmt.Fprintf(w, "%-10s %s fixed: sync %s/%sµs, bit0 %sµs, bit1 %sµs, %d bits\n",
				name, mqtt.FormatProtocol(c.ID), c.SyncStart, c.SyncWidth, c.Bit0, c.Bit1, c.CodeBits)
		}
	}
}

func run(opts options) error {
	configs, err := protocol.Parse(opts.protocols)
	if err != nil {
		return errors.Wrap(err, "parse protocols")
	}
	mask, err := decoder.ParseActionMask(opts.events)
	if err != nil {
		return errors.Wrap(err, "parse events")
	}
	registry := decoder.NewRegistry(configs...)

	source, err := gpio.Open(opts.backend, opts.chip, opts.pin)
	if err != nil {
		return errors.Wrap(err, "init gpio")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rx := receiver.New(receiver.Config{
		Pin:            opts.pin,
		PulseQueueSize: opts.pulseQueue,
		EventQueueSize: opts.eventQueue,
		EventTimeout:   opts.eventTimeout,
		Events:         mask,
	}, registry)

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Config{Broker: opts.broker, ClientID: opts.clientID})
	if err != nil {
		return errors.Wrap(err, "init mqtt")
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Pin:            opts.pin,
		Backend:        opts.backend,
		Protocols:      registry.Names(),
		Events:         mask.String(),
		PulseQueue:     opts.pulseQueue,
		EventQueue:     opts.eventQueue,
		EventTimeoutMs: opts.eventTimeout.Milliseconds(),
		HeartbeatMs:    opts.heartbeat.Milliseconds(),
		Broker:         opts.broker,
		HTTPPort:       opts.httpAddr,
		WSBroker:       opts.wsBroker,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Start decoding once the publisher and tracker are up.
	if err := startReceiver(ctx, rx, source, tracker); err != nil {
		return err
	}
	defer rx.Close()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.WithError(err).Error("failed to publish startup event")
	} else {
		log.Info("published startup event")
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.WithField("addr", opts.httpAddr).Info("http status server listening")
	}

	log.WithFields(log.Fields{
		"pin":       opts.pin,
		"backend":   opts.backend,
		"protocols": strings.Join(registry.Names(), ","),
		"events":    mask.String(),
		"broker":    opts.broker,
		"heartbeat": opts.heartbeat,
	}).Info("started")

	var heartbeat <-chan time.Time
	if opts.heartbeat > 0 {
		ticker := time.NewTicker(opts.heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(rx, registry, publisher, publisher, tracker, time.Now, heartbeat, sigCh)
}

// eventSource is the part of the receiver the run loop consumes.
type eventSource interface {
	Events() <-chan decoder.Event
	Stats() receiver.Stats
}

func runLoop(rx eventSource, registry *decoder.Registry, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	events := rx.Events()

	for {
		select {
		case s := <-sig:
			log.WithField("signal", s).Info("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refreshTracker(tracker, rx, mqttStatus)
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.WithError(err).Error("failed to publish shutdown event")
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case e, ok := <-events:
			if !ok {
				// Dispatcher stopped; keep serving signals and heartbeats.
				log.Warn("event queue closed")
				events = nil
				continue
			}

			ev := mqtt.Event{
				Timestamp:    now(),
				ProtocolName: registry.NameOf(e.ProtocolID),
				Event:        e,
			}
			log.WithFields(log.Fields{
				"protocol": ev.ProtocolName,
				"action":   e.Action,
				"code":     e.Code(),
			}).Info("event")
			if err := publisher.Publish(ev); err != nil {
				// Don't crash on publish failure
				log.WithError(err).Error("publish error")
			}

			if tracker != nil {
				tracker.RecordEvent(ev.Timestamp, ev.ProtocolName, e)
				refreshTracker(tracker, rx, mqttStatus)
			}

		case <-heartbeat:
			stats := rx.Stats()
			hbEvent := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				refreshTracker(tracker, rx, mqttStatus)
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				log.WithFields(log.Fields{
					"uptime":      snap.Uptime().Truncate(time.Second),
					"start":       snap.Counts.Start,
					"continue":    snap.Counts.Continue,
					"stop":        snap.Counts.Stop,
					"pulse_drops": stats.PulseDrops,
					"event_drops": stats.EventDrops,
				}).Info("heartbeat")
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.WithError(err).Error("heartbeat publish error")
			}
		}
	}
}

// startReceiver installs rx on source and records it in the tracker.
func startReceiver(ctx context.Context, rx *receiver.Receiver, source gpio.EdgeSource, tracker *status.Tracker) error {
	if err := rx.Install(ctx, source); err != nil {
		return errors.Wrap(err, "install receiver")
	}
	tracker.SetReceiving(rx.Installed())
	return nil
}

func refreshTracker(tracker *status.Tracker, rx eventSource, mqttStatus mqtt.ConnectionStatus) {
	tracker.SetPipeline(pipelineStatus(rx.Stats()))
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	if b, ok := mqttStatus.(mqtt.Backlog); ok {
		tracker.SetMQTTBacklog(b.Buffered(), b.Dropped())
	}
}

func pipelineStatus(s receiver.Stats) status.Pipeline {
	return status.Pipeline{
		Edges:          s.Edges,
		Pulses:         s.Pulses,
		PulseDrops:     s.PulseDrops,
		PulseOverflows: s.Overflows,
		EventsSent:     s.EventsSent,
		EventsFiltered: s.EventsFiltered,
		EventDrops:     s.EventDrops,
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.WithError(err).WithField("broker", broker).Warn("ws-broker: cannot parse --broker")
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
