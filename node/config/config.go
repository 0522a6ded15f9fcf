package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"
)

// Marketplace is the top-level config of a tradepost daemon.
type Marketplace struct {
	API    API
	Market Market
}

type API struct {
	// ListenAddress is the host:port the RPC server binds to.
	ListenAddress string
	Timeout       Duration
}

// Market carries the governance identities the engine is assembled with.
type Market struct {
	// Owner administers the fee rate and may sweep accumulated fees.
	Owner string
	// Beneficiary receives the marketplace cut of each sale.
	Beneficiary string
	// Escrow is the identity that holds custody of listed assets.
	Escrow string
}

// DefaultMarketplace returns the default config.
func DefaultMarketplace() *Marketplace {
	return &Marketplace{
		API: API{
			ListenAddress: "127.0.0.1:3453",
			Timeout:       Duration(30 * time.Second),
		},
		Market: Market{
			Owner:       "t0100",
			Beneficiary: "t0101",
			Escrow:      "t090",
		},
	}
}

// FromFile loads config from a specified file. If the file does not exist
// the default config is returned.
func FromFile(path string, def *Marketplace) (*Marketplace, error) {
	file, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		return def, nil
	case err != nil:
		return nil, err
	}

	defer file.Close() //nolint:errcheck // The file is RO
	return FromReader(file, def)
}

// FromReader loads config from a reader instance.
func FromReader(reader io.Reader, def *Marketplace) (*Marketplace, error) {
	cfg := *def
	_, err := toml.NewDecoder(reader).Decode(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// WriteFile persists cfg to path as TOML.
func WriteFile(path string, cfg *Marketplace) error {
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(cfg); err != nil {
		return xerrors.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Duration is a wrapper type for time.Duration
// for decoding and encoding from/to TOML
type Duration time.Duration

// UnmarshalText implements interface for TOML decoding
func (dur *Duration) UnmarshalText(text []byte) error {
	d, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*dur = Duration(d)
	return err
}

func (dur Duration) MarshalText() ([]byte, error) {
	d := time.Duration(dur)
	return []byte(d.String()), nil
}
