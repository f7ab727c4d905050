package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kimlab-seismo/detectQuake/internal/api"
	"github.com/kimlab-seismo/detectQuake/internal/config"
	"github.com/kimlab-seismo/detectQuake/internal/db"
	"github.com/kimlab-seismo/detectQuake/internal/httputil"
	"github.com/kimlab-seismo/detectQuake/internal/monitoring"
	"github.com/kimlab-seismo/detectQuake/internal/mqttpub"
	"github.com/kimlab-seismo/detectQuake/internal/sensor"
	"github.com/kimlab-seismo/detectQuake/internal/units"
	"github.com/kimlab-seismo/detectQuake/internal/version"
	"github.com/kimlab-seismo/detectQuake/internal/worker"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "Path to detection config JSON (defaults are used if the default path is missing)")
	dbPath      = flag.String("db", "seismic.db", "Path to the SQLite database")
	listen      = flag.String("listen", ":8080", "Listen address")
	ports       = flag.String("port", "/dev/ttyUSB0", "Comma-separated serial ports, one sensor each (ignored in dev mode)")
	sensorKind  = flag.String("sensor", "serial", "Sensor kind on -port: serial or usb")
	baudRate    = flag.Int("baud", 115200, "Serial baud rate")
	devMode     = flag.Bool("dev", false, "Run in dev mode, replaying -fixtures")
	fixtures    = flag.String("fixtures", "fixtures.txt", "x,y,z fixture file replayed in dev mode")
	mqttBroker  = flag.String("mqtt-broker", "", "MQTT broker URL for notifications, e.g. tcp://localhost:1883 (disabled if empty)")
	mqttPrefix  = flag.String("mqtt-prefix", mqttpub.DefaultTopicPrefix, "MQTT topic prefix")
	unitsFlag   = flag.String("units", units.MPS2, "Default acceleration units for the API ("+units.GetValidUnitsString()+")")
	timezone    = flag.String("tz", "UTC", "Timezone for API timestamps")
	backupDir   = flag.String("backup-dir", "", "Directory for database backups (defaults to the database directory)")
	listPorts   = flag.Bool("list-ports", false, "List serial ports and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("quaked"))
		return
	}
	if *listPorts {
		names, err := sensor.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "migrate":
			if err := db.RunMigrateCommand(args[1:], *dbPath, os.Stdout); err != nil {
				log.Fatalf("migrate: %v", err)
			}
			return
		case "status":
			if err := printStatus(httputil.NewStandardClient(&http.Client{Timeout: 5 * time.Second}), statusURL(*listen), os.Stdout); err != nil {
				log.Fatalf("status: %v", err)
			}
			return
		default:
			log.Fatalf("unknown command %q (want migrate or status)", args[0])
		}
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid -units %q: must be one of %s", *unitsFlag, units.GetValidUnitsString())
	}
	if !units.IsTimezoneValid(*timezone) {
		log.Fatalf("invalid -tz %q", *timezone)
	}

	cfg, err := loadConfig(*configPath, flagWasSet("config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sensors, err := buildSensors(sensorOptions{
		dev:      *devMode,
		fixtures: *fixtures,
		ports:    *ports,
		kind:     *sensorKind,
		baud:     *baudRate,
	})
	if err != nil {
		log.Fatalf("failed to configure sensors: %v", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	notifiers := monitoring.MultiNotifier{monitoring.LogNotifier{}}
	if *mqttBroker != "" {
		pub, err := mqttpub.Connect(mqttpub.Options{Broker: *mqttBroker, TopicPrefix: *mqttPrefix})
		if err != nil {
			log.Fatalf("failed to connect to MQTT broker: %v", err)
		}
		defer pub.Close()
		notifiers = append(notifiers, pub)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var group worker.Group
	for i, s := range sensors {
		group.Go(ctx, worker.New(s, deviceConfig(cfg, i), database, notifiers))
	}

	var wg sync.WaitGroup

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		apiServer := api.NewServer(&group, database, *unitsFlag, *timezone)
		mux := apiServer.ServeMux()
		apiServer.AttachAdminRoutes(mux)
		if err := database.AttachAdminRoutes(mux, *backupDir); err != nil {
			log.Printf("failed to attach database admin routes: %v", err)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Sensor workers stop on their own once the context is cancelled; the
	// shared flag covers workers between context checks. If every worker
	// exits first there is nothing left to serve.
	select {
	case <-ctx.Done():
	case <-group.Done():
		log.Printf("all sensor workers have exited, shutting down")
		stop()
	}
	group.Shutdown()
	results := group.Wait()
	for _, r := range results {
		if r.Err != nil {
			log.Printf("device %d stopped with error: %v", r.DeviceID, r.Err)
		} else {
			log.Printf("device %d stopped", r.DeviceID)
		}
	}

	wg.Wait()
	if worker.AllFailed(results) {
		database.Close()
		log.Fatalf("every sensor worker failed")
	}
	log.Printf("Graceful shutdown complete")
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// loadConfig reads path. A missing file at the default location falls back
// to built-in defaults; a missing file that was asked for explicitly is an
// error.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		log.Printf("config %s not found, using defaults", path)
		return config.DefaultConfig(), nil
	}
	return nil, err
}

// deviceConfig returns cfg with the device id offset by index, so sensors
// started from one config get consecutive ids.
func deviceConfig(cfg *config.Config, index int) *config.Config {
	c := *cfg
	id := cfg.GetDeviceID() + index
	c.DeviceID = &id
	return &c
}

type sensorOptions struct {
	dev      bool
	fixtures string
	ports    string
	kind     string
	baud     int
}

func buildSensors(o sensorOptions) ([]sensor.Sensor, error) {
	if o.dev {
		return []sensor.Sensor{sensor.NewFixtureSensor(o.fixtures)}, nil
	}

	var t sensor.Type
	switch strings.ToLower(o.kind) {
	case "serial", "":
		t = sensor.TypeSerial
	case "usb":
		t = sensor.TypeUSB
	default:
		return nil, fmt.Errorf("unknown sensor kind %q (want serial or usb)", o.kind)
	}
	portOpts, err := sensor.PortOptions{BaudRate: o.baud}.Normalize()
	if err != nil {
		return nil, err
	}

	var out []sensor.Sensor
	for _, p := range strings.Split(o.ports, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, sensor.NewSerialSensor(p, t, portOpts, nil))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no serial port given")
	}
	return out, nil
}

// statusURL turns a listen address into the local status endpoint.
func statusURL(listen string) string {
	host := listen
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/api/status"
}

func printStatus(c httputil.HTTPClient, url string, out io.Writer) error {
	var statuses []worker.Status
	if err := httputil.GetJSON(c, url, &statuses); err != nil {
		return err
	}
	if len(statuses) == 0 {
		fmt.Fprintln(out, "no sensors running")
		return nil
	}
	for _, st := range statuses {
		state := st.State
		if !st.Running {
			state = "stopped"
		}
		fmt.Fprintf(out, "device %d  %-22s %-9s cycles=%d reads/cycle=%.1f recordings=%d",
			st.DeviceID, st.SensorType, state, st.Stats.Cycles, st.Stats.ReadsPerCycle(), st.Recordings)
		if st.Err != "" {
			fmt.Fprintf(out, "  error=%s", st.Err)
		}
		fmt.Fprintln(out)
	}
	return nil
}
