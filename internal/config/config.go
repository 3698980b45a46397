package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"execgate/internal/model"
	"execgate/internal/model/enum"
	"execgate/internal/recorder"
	"execgate/internal/transport"
	"execgate/pkg/conn"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML layout.
type FileConfig struct {
	App       AppConfig          `yaml:"app"`
	Kafka     KafkaConfig        `yaml:"kafka"`
	UDS       UDSConfig          `yaml:"uds"`
	WebSocket WebSocketConfig    `yaml:"websocket"`
	Venue     VenueConfig        `yaml:"venue"`
	Journal   JournalConfig      `yaml:"journal"`
	Recorder  RecorderConfig     `yaml:"recorder"`
	Profiling ProfilingConfig    `yaml:"profiling"`
	Features  FeatureFlagsConfig `yaml:"features"`
	Order     *OrderConfig       `yaml:"order"`
}

type AppConfig struct {
	Name          string        `yaml:"name"`
	QueueCapacity int           `yaml:"queue_capacity"`
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// KafkaConfig is used when brokers are set.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	GroupID      string   `yaml:"group_id"`
	BinaryTopic  string   `yaml:"binary_topic"`
	TextTopic    string   `yaml:"text_topic"`
	CommandTopic string   `yaml:"command_topic"`
	MaxAttempts  int      `yaml:"max_attempts"`
}

// UDSConfig binds one socket path per encoding. Empty paths are not opened.
type UDSConfig struct {
	BinaryPath string `yaml:"binary_path"`
	TextPath   string `yaml:"text_path"`
}

// WebSocketConfig subscribes to a gateway push feed when url is set.
type WebSocketConfig struct {
	URL          string        `yaml:"url"`
	ReconnectMin time.Duration `yaml:"reconnect_min"`
	ReconnectMax time.Duration `yaml:"reconnect_max"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// VenueConfig selects the in-process simulated venue as command sink.
type VenueConfig struct {
	Simulated         bool   `yaml:"simulated"`
	Session           string `yaml:"session"`
	ResendOnReconnect bool   `yaml:"resend_on_reconnect"`
}

type JournalConfig struct {
	Enabled    bool              `yaml:"enabled"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	User       string            `yaml:"user"`
	Password   string            `yaml:"password"`
	Database   string            `yaml:"database"`
	SSLMode    string            `yaml:"ssl_mode"`
	Params     map[string]string `yaml:"params"`
	ConnString string            `yaml:"conn_string"`
}

// RecorderConfig keeps raw inbound frames on disk for replay.
type RecorderConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Dir                string        `yaml:"dir"`
	SegmentMaxBytes    int64         `yaml:"segment_max_bytes"`
	SegmentMaxDuration time.Duration `yaml:"segment_max_duration"`
	FlushInterval      time.Duration `yaml:"flush_interval"`
	SyncInterval       time.Duration `yaml:"sync_interval"`
}

type ProfilingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ServerAddress string `yaml:"server_address"`
}

// OrderConfig describes an order the desk strategy submits on start.
type OrderConfig struct {
	ID          string `yaml:"id"`
	StrategyID  string `yaml:"strategy_id"`
	Symbol      string `yaml:"symbol"`
	Side        string `yaml:"side"`
	Type        string `yaml:"type"`
	TimeInForce string `yaml:"time_in_force"`
	Quantity    int64  `yaml:"quantity"`
	Price       string `yaml:"price"`
	Label       string `yaml:"label"`
}

// OrderSpec is the resolved start-up order.
type OrderSpec struct {
	StrategyID string
	Order      model.Order
}

// FeatureFlagsConfig captures optional runtime flags.
type FeatureFlagsConfig struct {
	TrackLifecycle *bool `yaml:"track_lifecycle"`
	LogDiagnostics *bool `yaml:"log_diagnostics"`
}

// FeatureFlags are resolved runtime flags.
type FeatureFlags struct {
	TrackLifecycle bool
	LogDiagnostics bool
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	App       AppConfig
	Kafka     transport.KafkaConfig
	UDS       UDSConfig
	WebSocket *transport.WebSocketConfig
	Venue     VenueConfig
	Journal   *conn.Option
	Recorder  *recorder.Config
	Profiling ProfilingConfig
	Features  FeatureFlags
	Order     *OrderSpec
}

// KafkaEnabled reports whether any Kafka broker is configured.
func (l Loaded) KafkaEnabled() bool {
	return len(l.Kafka.Brokers) > 0
}

const (
	defaultAppName       = "execgate"
	defaultQueueCapacity = 4096
	defaultStatsInterval = 15 * time.Second
	defaultGroupID       = "execgate"
	defaultProfiler      = "http://localhost:4040"
	defaultStrategyID    = "desk"
)

// Load reads a YAML config file, applies EXECGATE_* environment overrides and validates.
// An empty path loads from the environment only.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "parse config file")
		}
	}
	cfg.loadEnvOverrides(os.Getenv)
	return cfg.resolve()
}

func (c *FileConfig) loadEnvOverrides(getenv func(string) string) {
	if v := getenv("EXECGATE_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("EXECGATE_KAFKA_GROUP_ID"); v != "" {
		c.Kafka.GroupID = v
	}
	if v := getenv("EXECGATE_UDS_BINARY_PATH"); v != "" {
		c.UDS.BinaryPath = v
	}
	if v := getenv("EXECGATE_UDS_TEXT_PATH"); v != "" {
		c.UDS.TextPath = v
	}
	if v := getenv("EXECGATE_WEBSOCKET_URL"); v != "" {
		c.WebSocket.URL = v
	}
	if v := getenv("EXECGATE_JOURNAL_ENABLED"); v != "" {
		c.Journal.Enabled = v == "true" || v == "1"
	}
	if v := getenv("EXECGATE_JOURNAL_CONN_STRING"); v != "" {
		c.Journal.ConnString = v
	}
	if v := getenv("EXECGATE_JOURNAL_PASSWORD"); v != "" {
		c.Journal.Password = v
	}
	if v := getenv("EXECGATE_RECORDER_DIR"); v != "" {
		c.Recorder.Enabled = true
		c.Recorder.Dir = v
	}
	if v := getenv("EXECGATE_PROFILING_SERVER_ADDRESS"); v != "" {
		c.Profiling.ServerAddress = v
	}
	if v := getenv("EXECGATE_QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.App.QueueCapacity = n
		}
	}
}

func (c FileConfig) resolve() (Loaded, error) {
	app := c.App
	if app.Name == "" {
		app.Name = defaultAppName
	}
	if app.QueueCapacity < 0 {
		return Loaded{}, errors.Errorf("app.queue_capacity must be >= 0, got %d", app.QueueCapacity)
	}
	if app.QueueCapacity == 0 {
		app.QueueCapacity = defaultQueueCapacity
	}
	if app.StatsInterval <= 0 {
		app.StatsInterval = defaultStatsInterval
	}

	kafka, err := resolveKafka(c.Kafka, c.Venue)
	if err != nil {
		return Loaded{}, err
	}
	ws := resolveWebSocket(c.WebSocket)
	if len(kafka.Brokers) == 0 && c.UDS.BinaryPath == "" && c.UDS.TextPath == "" && ws == nil {
		return Loaded{}, errors.New("no event source: set kafka.brokers, uds paths or websocket.url")
	}
	if c.UDS.BinaryPath != "" && c.UDS.BinaryPath == c.UDS.TextPath {
		return Loaded{}, errors.New("uds.binary_path and uds.text_path must differ")
	}
	if len(kafka.Brokers) == 0 && !c.Venue.Simulated {
		return Loaded{}, errors.New("no command sink: set kafka.brokers or venue.simulated")
	}

	order, err := resolveOrder(c.Order)
	if err != nil {
		return Loaded{}, err
	}
	rec, err := resolveRecorder(c.Recorder)
	if err != nil {
		return Loaded{}, err
	}

	profiling := c.Profiling
	if profiling.Enabled && profiling.ServerAddress == "" {
		profiling.ServerAddress = defaultProfiler
	}

	return Loaded{
		App:       app,
		Kafka:     kafka,
		UDS:       c.UDS,
		WebSocket: ws,
		Venue:     c.Venue,
		Journal:   resolveJournal(c.Journal),
		Recorder:  rec,
		Profiling: profiling,
		Features:  resolveFeatures(c.Features),
		Order:     order,
	}, nil
}

func resolveKafka(cfg KafkaConfig, venue VenueConfig) (transport.KafkaConfig, error) {
	if len(cfg.Brokers) == 0 {
		return transport.KafkaConfig{}, nil
	}
	if cfg.BinaryTopic == "" && cfg.TextTopic == "" {
		return transport.KafkaConfig{}, errors.New("kafka.binary_topic or kafka.text_topic is required")
	}
	if cfg.BinaryTopic == cfg.TextTopic {
		return transport.KafkaConfig{}, errors.New("kafka.binary_topic and kafka.text_topic must differ")
	}
	if cfg.CommandTopic == "" && !venue.Simulated {
		return transport.KafkaConfig{}, errors.New("kafka.command_topic is required")
	}
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = defaultGroupID
	}
	return transport.KafkaConfig{
		Brokers:      cfg.Brokers,
		GroupID:      groupID,
		BinaryTopic:  cfg.BinaryTopic,
		TextTopic:    cfg.TextTopic,
		CommandTopic: cfg.CommandTopic,
		MaxAttempts:  cfg.MaxAttempts,
	}, nil
}

func resolveWebSocket(cfg WebSocketConfig) *transport.WebSocketConfig {
	if cfg.URL == "" {
		return nil
	}
	backoff := transport.DefaultBackoff()
	if cfg.ReconnectMin > 0 {
		backoff.Min = cfg.ReconnectMin
	}
	if cfg.ReconnectMax > 0 {
		backoff.Max = cfg.ReconnectMax
	}
	return &transport.WebSocketConfig{
		URL:         cfg.URL,
		Backoff:     backoff,
		MaxAttempts: cfg.MaxAttempts,
	}
}

func resolveJournal(cfg JournalConfig) *conn.Option {
	if !cfg.Enabled {
		return nil
	}
	return &conn.Option{
		Host:       cfg.Host,
		Port:       cfg.Port,
		User:       cfg.User,
		Password:   cfg.Password,
		Database:   cfg.Database,
		SSLMode:    cfg.SSLMode,
		Params:     cfg.Params,
		ConnString: cfg.ConnString,
	}
}

func resolveRecorder(cfg RecorderConfig) (*recorder.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Dir == "" {
		return nil, errors.New("recorder.dir is required when recorder is enabled")
	}
	rc := recorder.DefaultConfig(cfg.Dir)
	if cfg.SegmentMaxBytes > 0 {
		rc.SegmentMaxBytes = cfg.SegmentMaxBytes
	}
	if cfg.SegmentMaxDuration > 0 {
		rc.SegmentMaxDuration = cfg.SegmentMaxDuration
	}
	rc.FlushInterval = cfg.FlushInterval
	rc.SyncInterval = cfg.SyncInterval
	if err := rc.Validate(); err != nil {
		return nil, errors.Wrap(err, "recorder")
	}
	return &rc, nil
}

func resolveOrder(cfg *OrderConfig) (*OrderSpec, error) {
	if cfg == nil {
		return nil, nil
	}
	symbol, err := model.ParseSymbol(cfg.Symbol)
	if err != nil {
		return nil, errors.Wrapf(err, "order symbol %q", cfg.Symbol)
	}
	side, ok := enum.ParseOrderSide(strings.ToUpper(cfg.Side))
	if !ok {
		return nil, errors.Errorf("order side %q is unknown", cfg.Side)
	}
	orderType := enum.OrderTypeMarket
	if cfg.Type != "" {
		if orderType, ok = enum.ParseOrderType(cfg.Type); !ok {
			return nil, errors.Errorf("order type %q is unknown", cfg.Type)
		}
	}
	tif := enum.TimeInForceDay
	if cfg.TimeInForce != "" {
		if tif, ok = enum.ParseTimeInForce(cfg.TimeInForce); !ok {
			return nil, errors.Errorf("order time_in_force %q is unknown", cfg.TimeInForce)
		}
	}
	var price decimal.Decimal
	if cfg.Price != "" {
		if price, err = decimal.NewFromString(cfg.Price); err != nil {
			return nil, errors.Wrapf(err, "order price %q", cfg.Price)
		}
	}

	spec := &OrderSpec{
		StrategyID: cfg.StrategyID,
		Order: model.Order{
			ID:          cfg.ID,
			Symbol:      symbol,
			Label:       cfg.Label,
			Side:        side,
			Type:        orderType,
			Quantity:    cfg.Quantity,
			Price:       price,
			TimeInForce: tif,
		},
	}
	if spec.StrategyID == "" {
		spec.StrategyID = defaultStrategyID
	}
	if spec.Order.ID == "" {
		spec.Order.ID = "O-" + strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	}
	if err := spec.Order.Validate(); err != nil {
		return nil, errors.Wrapf(err, "order %s", spec.Order.ID)
	}
	return spec, nil
}

func resolveFeatures(cfg FeatureFlagsConfig) FeatureFlags {
	flags := FeatureFlags{
		TrackLifecycle: true,
		LogDiagnostics: true,
	}
	if cfg.TrackLifecycle != nil {
		flags.TrackLifecycle = *cfg.TrackLifecycle
	}
	if cfg.LogDiagnostics != nil {
		flags.LogDiagnostics = *cfg.LogDiagnostics
	}
	return flags
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
