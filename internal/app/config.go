package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete service configuration, loadable from environment
// variables (POSPRINT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (POSPRINT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`

	Business  BusinessConfig
	Printer   PrinterConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// BusinessConfig is the static identity printed in every document header.
// It is loaded once at startup, not re-fetched per print.
type BusinessConfig struct {
	Name         string `default:"LENGOLF CO. LTD." usage:"Business name on receipt headers"`
	AddressLine1 string `default:"540 Mercury Tower, Unit 407 Ploenchit Road" usage:"Address line 1" flag:"address-line1"`
	AddressLine2 string `default:"Lumpini, Pathumwan, Bangkok 10330" usage:"Address line 2" flag:"address-line2"`
	TaxID        string `default:"0105566207013" usage:"Business tax identifier" flag:"tax-id"`
	Timezone     string `default:"Asia/Bangkok" usage:"Local timezone for receipt timestamps"`
}

// PrinterConfig selects the physical devices and tunes the transports.
type PrinterConfig struct {
	// PaperWidth is the printable width in characters (44 for 58 mm stock).
	PaperWidth int `default:"44" usage:"Printable width in characters" flag:"paper-width"`
	// PreferUSB makes auto selection pick an already-connected USB printer
	// over Bluetooth, for fixed hosts with a cabled printer.
	PreferUSB bool `default:"false" usage:"Prefer connected USB printer in auto mode" flag:"prefer-usb"`

	Bluetooth BluetoothConfig
	USB       USBConfig
}

// BluetoothConfig tunes the BLE transport driver.
type BluetoothConfig struct {
	Enabled            bool          `default:"true" usage:"Enable the Bluetooth transport"`
	DeviceName         string        `default:"" usage:"Restrict scanning to this advertised device name" flag:"ble-device-name"`
	ServiceUUID        string        `default:"" usage:"Override the print service UUID" flag:"ble-service-uuid"`
	CharacteristicUUID string        `default:"" usage:"Override the print characteristic UUID" flag:"ble-characteristic-uuid"`
	ChunkSize          int           `default:"100" usage:"Max characteristic write size in bytes" flag:"ble-chunk-size"`
	WriteTimeout       time.Duration `default:"5s" usage:"Per-chunk write timeout" flag:"ble-write-timeout"`
	ScanTimeout        time.Duration `default:"10s" usage:"Device discovery timeout" flag:"ble-scan-timeout"`
}

// USBConfig tunes the USB transport driver.
type USBConfig struct {
	Enabled      bool          `default:"true" usage:"Enable the USB transport"`
	VendorID     uint          `default:"1208" usage:"USB vendor ID (1208 = 0x04b8 Epson)" flag:"usb-vendor-id"`
	ProductID    uint          `default:"3621" usage:"USB product ID (3621 = 0x0e25 TM-T20III)" flag:"usb-product-id"`
	WriteTimeout time.Duration `default:"8s" usage:"Bulk transfer timeout" flag:"usb-write-timeout"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "POSPRINT",
		Files:     []string{"config.yaml", "/etc/pos-print/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set POSPRINT_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the POSPRINT_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
