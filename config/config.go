// Package config holds the node configuration. Values are read, in order of
// precedence, from command line flags, POLLS_ prefixed environment variables
// (POLLS_API_PORT for api.port) and an optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vocdoni/confidential-polls/crypto/ecc/curves"
	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/types"
)

const (
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "POLLS"

	DBTypePebble = "pebble"
	DBTypeMemory = "memory"

	DefaultAPIHost      = "0.0.0.0"
	DefaultAPIPort      = 9090
	DefaultChainID      = 31337
	DefaultContract     = "0x00000000000000000000000000000000000c0a11"
	DefaultKMSContract  = "0x00000000000000000000000000000000000c0de5"
	DefaultMaxValue     = 1 << 20
	DefaultMaxGrantDays = 365
	DefaultQueueSize    = 256
	DefaultTimeout      = 60 * time.Second
)

// Config is the node configuration.
type Config struct {
	Datadir string `mapstructure:"datadir"`
	DBType  string `mapstructure:"dbType"`

	API struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"api"`

	Log struct {
		Level  string `mapstructure:"level"`
		Output string `mapstructure:"output"`
	} `mapstructure:"log"`

	Chain struct {
		ID       uint64 `mapstructure:"id"`
		Contract string `mapstructure:"contract"`
	} `mapstructure:"chain"`

	Gateway struct {
		QueueSize int `mapstructure:"queueSize"`
	} `mapstructure:"gateway"`

	FHE struct {
		Curve string `mapstructure:"curve"`
	} `mapstructure:"fhe"`

	Decryption struct {
		KMSContract  string        `mapstructure:"kmsContract"`
		DurationDays uint64        `mapstructure:"durationDays"`
		MaxGrantDays uint64        `mapstructure:"maxGrantDays"`
		MaxValue     uint64        `mapstructure:"maxValue"`
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"decryption"`
}

// ContractAddress returns the ledger contract address.
func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Chain.Contract)
}

// KMSContractAddress returns the verifying contract of decryption grants.
func (c *Config) KMSContractAddress() common.Address {
	return common.HexToAddress(c.Decryption.KMSContract)
}

// Validate rejects inconsistent configurations.
func (c *Config) Validate() error {
	if c.DBType != DBTypePebble && c.DBType != DBTypeMemory {
		return fmt.Errorf("unknown db type %q", c.DBType)
	}
	if c.DBType == DBTypePebble && c.Datadir == "" {
		return fmt.Errorf("datadir is required with the %s db", DBTypePebble)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}
	if c.Chain.ID == 0 {
		return fmt.Errorf("chain id must be positive")
	}
	if !common.IsHexAddress(c.Chain.Contract) {
		return fmt.Errorf("invalid contract address %q", c.Chain.Contract)
	}
	if !common.IsHexAddress(c.Decryption.KMSContract) {
		return fmt.Errorf("invalid kms contract address %q", c.Decryption.KMSContract)
	}
	if !curves.IsValid(c.FHE.Curve) {
		return fmt.Errorf("unsupported curve %q", c.FHE.Curve)
	}
	if c.Decryption.MaxGrantDays == 0 {
		return fmt.Errorf("max grant days must be positive")
	}
	if c.Decryption.DurationDays == 0 || c.Decryption.DurationDays > c.Decryption.MaxGrantDays {
		return fmt.Errorf("decryption duration of %d days outside [1, %d]",
			c.Decryption.DurationDays, c.Decryption.MaxGrantDays)
	}
	if c.Decryption.MaxValue == 0 {
		return fmt.Errorf("max decryptable value must be positive")
	}
	if c.Decryption.Timeout <= 0 {
		return fmt.Errorf("decryption timeout must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

func defaultDatadir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".polls"
	}
	return filepath.Join(home, ".polls")
}

// Flags returns the flag set of the node, with the defaults of every key.
func Flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", "", "optional YAML configuration file")
	fs.String("datadir", defaultDatadir(), "data directory")
	fs.String("dbType", DBTypePebble, "database type (pebble or memory)")
	fs.String("api.host", DefaultAPIHost, "API host")
	fs.Int("api.port", DefaultAPIPort, "API port")
	fs.String("log.level", log.LogLevelInfo, "log level (debug, info, warn or error)")
	fs.String("log.output", "stdout", "log output (stdout, stderr or a file path)")
	fs.Uint64("chain.id", DefaultChainID, "chain id signed transactions must carry")
	fs.String("chain.contract", DefaultContract, "ledger contract address")
	fs.Int("gateway.queueSize", DefaultQueueSize, "transactions waiting for execution")
	fs.String("fhe.curve", curves.CurveTypeBabyJubJub, "curve of the encryption scheme")
	fs.String("decryption.kmsContract", DefaultKMSContract, "verifying contract of decryption grants")
	fs.Uint64("decryption.durationDays", types.DefaultDecryptionDurationDays, "validity of decryption grants, in days")
	fs.Uint64("decryption.maxGrantDays", DefaultMaxGrantDays, "longest grant accepted by the relayer, in days")
	fs.Uint64("decryption.maxValue", DefaultMaxValue, "largest plaintext the KMS searches for")
	fs.Duration("decryption.timeout", DefaultTimeout, "relayer call timeout")
	return fs
}

// Load parses args and builds the configuration.
func Load(name string, args []string) (*Config, error) {
	fs := Flags(name)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", file, err)
		}
	}
	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
