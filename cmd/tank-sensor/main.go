// Command tank-sensor monitors water level in a tank with an ultrasonic
// UART sensor and drives a status LED plus a normally-energized safety
// relay, with live-reloadable thresholds from a persisted config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/tank-sensor/internal/config"
	"github.com/sweeney/tank-sensor/internal/gpio"
	"github.com/sweeney/tank-sensor/internal/logic"
	"github.com/sweeney/tank-sensor/internal/output"
	"github.com/sweeney/tank-sensor/internal/report"
	"github.com/sweeney/tank-sensor/internal/sensor"
	"github.com/sweeney/tank-sensor/internal/status"
	"github.com/sweeney/tank-sensor/internal/web"
)

// configCheckInterval is how often the persisted config file is polled for
// changes. Not runtime-tunable.
const configCheckInterval = 5000 * time.Millisecond

// idleDelay throttles the loop between activity checks. It only bounds how
// late a timer can fire; it is not a correctness-relevant interval.
const idleDelay = 30 * time.Millisecond

// maxErrorStreak is the number of consecutive sensor failures that
// escalates to a forced-unsafe output.
const maxErrorStreak = 5

func main() {
	cfgPath := flag.String("config", "/boot/tank/config.json", "Path to the persisted config document")
	sensorDev := flag.String("sensor-port", "/dev/ttyAMA0", "Serial device of the distance sensor")
	consoleDev := flag.String("console-port", "", "Serial device for status output (empty to disable)")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	printLevel := flag.Bool("print-level", false, "Take one measurement, print the level and exit")

	flag.Parse()

	if err := run(*cfgPath, *sensorDev, *consoleDev, *broker, *heartbeat, *httpAddr, *printLevel); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfgPath, sensorDev, consoleDev, broker string, heartbeat time.Duration, httpAddr string, printLevel bool) error {
	// Load config; a broken or missing file is a warning, never fatal.
	cfg, warn := config.Load(cfgPath)
	if warn != nil {
		log.Printf("warning: %v", warn)
	}

	// Initialize the sensor UART
	port, err := sensor.Open(sensorDev)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	sens := sensor.New(port)
	defer sens.Close()

	// One-shot measurement mode
	if printLevel {
		d, err := sens.ReadDistance(cfg.SensorToWaterMinMM, cfg.TankHeightMM)
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		fmt.Printf("distance: %d mm, water level: %d mm\n", d, logic.WaterLevel(d, cfg.TankHeightMM))
		return nil
	}

	// Initialize GPIO outputs
	out, err := gpio.NewRealOutput(cfg.LEDPin, cfg.RelayPin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer out.Close()

	// Assemble the status/event sinks
	var sinks report.Multi
	if consoleDev != "" {
		console, err := report.OpenConsole(consoleDev)
		if err != nil {
			return fmt.Errorf("init console: %w", err)
		}
		defer console.Close()
		sinks = append(sinks, console)
	}
	var mq *report.MQTT
	if broker != "" {
		mq, err = report.NewMQTT(broker)
		if err != nil {
			// The broker being down must not keep the safety loop from
			// running.
			log.Printf("mqtt connect: %v (continuing without broker)", err)
		}
		if mq != nil {
			defer mq.Close()
			sinks = append(sinks, mq)
		}
	}

	// Status tracker for the HTTP page and lifecycle snapshots
	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:       broker,
		HTTPAddr:     httpAddr,
		ConfigPath:   cfgPath,
		SensorDevice: sensorDev,
		MovingAvgN:   cfg.MovingAvgN,
		HeartbeatMs:  heartbeat.Milliseconds(),
	}, cfg.Runtime())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	var snapshots snapshotPublisher
	if mq != nil {
		snapshots = mq
		tracker.SetMQTTConnected(mq.IsConnected())
		if err := mq.PublishSnapshot(status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", "")); err != nil {
			log.Printf("failed to publish startup snapshot: %v", err)
		} else {
			log.Printf("published startup snapshot")
		}
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: config=%s sensor=%s broker=%s heartbeat=%v moving_avg=%d",
		cfgPath, sensorDev, broker, heartbeat, cfg.MovingAvgN)

	ticker := time.NewTicker(idleDelay)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ctrl := newControlContext(cfg)
	driver := output.New(out, sinks)

	return runLoop(sens, driver, sinks, snapshots, tracker, cfgPath, ctrl, heartbeat, time.Now, ticker.C, sigCh)
}

// distanceReader is the slice of the sensor the loop needs.
type distanceReader interface {
	ReadDistance(minMM, maxMM int) (int, error)
}

// snapshotPublisher delivers retained lifecycle snapshots.
type snapshotPublisher interface {
	PublishSnapshot(payload []byte) error
	IsConnected() bool
}

// controlContext is the long-lived control-loop state: the runtime config,
// the filter buffer and the alarm state. It is owned and mutated only by
// runLoop, so no locking is needed.
type controlContext struct {
	runtime  config.Runtime
	samples  *logic.SampleBuffer
	level    int
	hasLevel bool
	state    logic.State
	ledOn    bool
	streak   int // consecutive sensor failures
	counts   logic.Counters
}

func newControlContext(cfg config.Config) *controlContext {
	return &controlContext{
		runtime: cfg.Runtime(),
		samples: logic.NewSampleBuffer(cfg.MovingAvgN),
		state:   logic.StateOK,
	}
}

// runLoop is the cooperative scheduler: a single goroutine checks three
// independent timers on every tick (config poll, measurement, state
// evaluation) and applies the outputs. The only blocking call is the
// sensor read, bounded by its own timeout.
func runLoop(reader distanceReader, driver *output.Driver, rep report.Reporter, snapshots snapshotPublisher, tracker *status.Tracker, cfgPath string, ctrl *controlContext, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	start := now()
	lastCfgCheck := start
	lastMeasure := start
	lastEval := start
	lastHeartbeat := start
	evalInterval := time.Duration(ctrl.runtime.SlowBlinkMS) * time.Millisecond

	lastDigest, _ := config.Fingerprint(cfgPath)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if snapshots != nil && tracker != nil {
				tracker.SetMQTTConnected(snapshots.IsConnected())
				payload := status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
				if err := snapshots.PublishSnapshot(payload); err != nil {
					log.Printf("failed to publish shutdown snapshot: %v", err)
				} else {
					log.Printf("published shutdown snapshot")
				}
			}
			return nil

		case <-tick:
			t := now()

			checkConfig(ctrl, rep, tracker, cfgPath, &lastDigest, &lastCfgCheck, t)

			if t.Sub(lastMeasure) >= time.Duration(ctrl.runtime.MeasureIntervalMS)*time.Millisecond {
				measure(ctrl, reader, driver, rep)
				lastMeasure = t
			}

			if t.Sub(lastEval) >= evalInterval {
				evalInterval = evaluate(ctrl, driver, rep)
				lastEval = t
			}

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				emitHeartbeat(ctrl, driver, snapshots, tracker, start, t)
			}

			if tracker != nil {
				relay, relayKnown := driver.LastRelay()
				tracker.Update(ctrl.level, ctrl.hasLevel, ctrl.state, ctrl.ledOn,
					relay, relayKnown, ctrl.streak, ctrl.streak >= maxErrorStreak, ctrl.counts)
				if snapshots != nil {
					tracker.SetMQTTConnected(snapshots.IsConnected())
				}
			}
		}
	}
}

// checkConfig polls the persisted file and diff-applies changes to the
// runtime config. Parse failures and rejected payloads keep the previous
// config; both are reported and retried on the next change.
func checkConfig(ctrl *controlContext, rep report.Reporter, tracker *status.Tracker, cfgPath string, lastDigest *string, lastCheck *time.Time, t time.Time) {
	if t.Sub(*lastCheck) < configCheckInterval {
		return
	}
	*lastCheck = t

	values, digest, changed, err := config.PollForChange(cfgPath, *lastDigest)
	if err != nil {
		log.Printf("config reload error: %v", err)
		reportLine(rep, fmt.Sprintf("config reload failed: %v", err))
		return
	}
	if !changed {
		return
	}
	*lastDigest = digest

	keys, err := ctrl.runtime.Apply(values)
	if err != nil {
		log.Printf("config reload rejected: %v", err)
		reportLine(rep, fmt.Sprintf("config reload rejected: %v", err))
		return
	}
	if len(keys) == 0 {
		return
	}

	ctrl.counts.ConfigReloads++
	log.Printf("config updated: %s", strings.Join(keys, ", "))
	reportLine(rep, "config updated: "+strings.Join(keys, ", "))
	if tracker != nil {
		tracker.SetRuntime(ctrl.runtime)
	}
}

// measure takes one sensor reading and feeds the filter. Failures never
// halt the loop; after maxErrorStreak consecutive failures the outputs are
// forced to the unsafe side until a successful measurement resumes normal
// evaluation.
func measure(ctrl *controlContext, reader distanceReader, driver *output.Driver, rep report.Reporter) {
	d, err := reader.ReadDistance(ctrl.runtime.SensorToWaterMinMM, ctrl.runtime.TankHeightMM)
	if err != nil {
		ctrl.streak++
		ctrl.counts.SensorErrors++
		log.Printf("sensor error (%d consecutive): %v", ctrl.streak, err)
		reportLine(rep, fmt.Sprintf("sensor error: %v", err))

		if ctrl.streak >= maxErrorStreak {
			// Escalate: indicator on and relay unsafe, regardless of what
			// the state machine last decided. The LED write is out of band;
			// the state machine's own LED value is left untouched and its
			// next tick may override these outputs with stale level data.
			if err := driver.ApplyLED(true); err != nil {
				log.Printf("led write error: %v", err)
			}
			changed, err := driver.ApplyRelay(logic.RelayUnsafe)
			if err != nil {
				log.Printf("relay write error: %v", err)
			}
			if changed {
				ctrl.counts.RelayChanges++
				reportLine(rep, "permanent sensor alarm: relay forced unsafe")
			}
		}
		return
	}

	level := logic.WaterLevel(d, ctrl.runtime.TankHeightMM)
	ctrl.samples.Push(level)
	if avg, ok := ctrl.samples.Average(); ok {
		ctrl.level = avg
		ctrl.hasLevel = true
	}
	ctrl.streak = 0
	ctrl.counts.Measurements++
	reportLine(rep, fmt.Sprintf("water level: %d mm", ctrl.level))
}

// evaluate runs the alarm state machine on the last filtered level and
// applies its outputs. Returns the delay until the next evaluation.
func evaluate(ctrl *controlContext, driver *output.Driver, rep report.Reporter) time.Duration {
	var level *int
	if ctrl.hasLevel {
		l := ctrl.level
		level = &l
	}

	out := logic.Evaluate(level, ctrl.state, ctrl.ledOn, ctrl.runtime.Thresholds())
	ctrl.state = out.State
	ctrl.ledOn = out.LEDOn

	if err := driver.ApplyLED(out.LEDOn); err != nil {
		log.Printf("led write error: %v", err)
	}
	changed, err := driver.ApplyRelay(out.Relay)
	if err != nil {
		log.Printf("relay write error: %v", err)
	}
	if changed {
		ctrl.counts.RelayChanges++
	}

	return time.Duration(out.NextIntervalMS) * time.Millisecond
}

func emitHeartbeat(ctrl *controlContext, driver *output.Driver, snapshots snapshotPublisher, tracker *status.Tracker, start, t time.Time) {
	log.Printf("heartbeat: uptime=%v measurements=%d errors=%d relay_changes=%d",
		t.Sub(start), ctrl.counts.Measurements, ctrl.counts.SensorErrors, ctrl.counts.RelayChanges)

	if snapshots == nil || tracker == nil {
		return
	}
	tracker.SetMQTTConnected(snapshots.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	relay, relayKnown := driver.LastRelay()
	tracker.Update(ctrl.level, ctrl.hasLevel, ctrl.state, ctrl.ledOn,
		relay, relayKnown, ctrl.streak, ctrl.streak >= maxErrorStreak, ctrl.counts)
	if err := snapshots.PublishSnapshot(status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func reportLine(rep report.Reporter, line string) {
	if rep == nil {
		return
	}
	if err := rep.Report(line); err != nil {
		log.Printf("report error: %v", err)
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
