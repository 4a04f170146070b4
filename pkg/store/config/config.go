// Package config holds the sleepsync configuration file model.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	BackendDrive = "drive"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
	BackendNone  = "none"

	TransportSMTP  = "smtp"
	TransportGmail = "gmail"
	TransportNone  = "none"
)

type Config struct {
	Sleepsync Sleepsync `toml:"sleepsync"` // application metadata
	Paths     Paths     `toml:"paths"`
	FlashAir  FlashAir  `toml:"flashair"`
	SleepHQ   SleepHQ   `toml:"sleephq"`
	Cloud     Cloud     `toml:"cloud"`
	Mail      Mail      `toml:"mail"`
	Retention Retention `toml:"retention"`
	Logs      Logs      `toml:"logs"`
}

type Sleepsync struct {
	Version string `toml:"version"` // version that wrote the file
}

type Paths struct {
	DownloadDir string `toml:"download_dir"` // local mirror of the card
	LogDir      string `toml:"log_dir"`      // success/error logs and the hash ledger
}

// FlashAir describes the SD card and the folders read from it.
type FlashAir struct {
	Host            string   `toml:"host"`
	Password        string   `toml:"password,omitempty"`
	DatalogDir      string   `toml:"datalog_dir"`
	SettingsDir     string   `toml:"settings_dir"`
	CriticalFiles   []string `toml:"critical_files"`
	Timeout         Duration `toml:"timeout"`
	DownloadTimeout Duration `toml:"download_timeout"`
}

type SleepHQ struct {
	BaseURL      string   `toml:"base_url"`
	TokenURL     string   `toml:"token_url"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Username     string   `toml:"username"`
	Password     string   `toml:"password"`
	TeamID       string   `toml:"team_id"`
	Timeout      Duration `toml:"timeout"`
}

type Cloud struct {
	Backend string   `toml:"backend"` // drive|s3|gcs|none
	Timeout Duration `toml:"timeout"`
	Drive   Drive    `toml:"drive"`
	S3      S3       `toml:"s3"`
	GCS     GCS      `toml:"gcs"`
}

type Drive struct {
	CredentialsFile string `toml:"credentials_file"` // service account json
	FolderID        string `toml:"folder_id"`        // parent of the dated folders
}

type S3 struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
}

type GCS struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	CredentialsFile string `toml:"credentials_file,omitempty"`
}

type Mail struct {
	Transport string   `toml:"transport"` // smtp|gmail|none
	From      string   `toml:"from"`
	To        string   `toml:"to"`
	Timeout   Duration `toml:"timeout"` // whole send, connect to quit
	SMTP      SMTP     `toml:"smtp"`
	Gmail     Gmail    `toml:"gmail"`
}

type SMTP struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type Gmail struct {
	CredentialsFile string `toml:"credentials_file"` // service account with domain-wide delegation
}

type Retention struct {
	LocalDays  int `toml:"local_days"`
	RemoteDays int `toml:"remote_days"` // card and cloud dated folders
}

type Logs struct {
	MaxBytes int64 `toml:"max_bytes"` // truncate threshold per log file
}

// Default returns a config with every tunable set. Paths are left empty and
// filled in by the store that owns them.
func Default() Config {
	return Config{
		FlashAir: FlashAir{
			DatalogDir:      "/DATALOG",
			SettingsDir:     "/SETTINGS",
			CriticalFiles:   []string{"/STR.edf", "/Identification.crc", "/Identification.json"},
			Timeout:         Duration{10 * time.Second},
			DownloadTimeout: Duration{30 * time.Second},
		},
		SleepHQ: SleepHQ{
			BaseURL:  "https://sleephq.com/api/v1",
			TokenURL: "https://sleephq.com/oauth/token",
			Timeout:  Duration{60 * time.Second},
		},
		Cloud: Cloud{
			Backend: BackendDrive,
			Timeout: Duration{60 * time.Second},
		},
		Mail: Mail{
			Transport: TransportSMTP,
			Timeout:   Duration{30 * time.Second},
			SMTP: SMTP{
				Host: "smtp.gmail.com",
				Port: 587,
			},
		},
		Retention: Retention{
			LocalDays:  9,
			RemoteDays: 7,
		},
		Logs: Logs{
			MaxBytes: 1_000_000,
		},
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	require(c.Paths.DownloadDir, "paths.download_dir")
	require(c.Paths.LogDir, "paths.log_dir")

	require(c.FlashAir.Host, "flashair.host")
	require(c.FlashAir.DatalogDir, "flashair.datalog_dir")
	require(c.FlashAir.SettingsDir, "flashair.settings_dir")
	for _, p := range c.FlashAir.CriticalFiles {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("flashair.critical_files: %q must be an absolute card path", p))
		}
	}

	require(c.SleepHQ.BaseURL, "sleephq.base_url")
	require(c.SleepHQ.TokenURL, "sleephq.token_url")
	require(c.SleepHQ.ClientID, "sleephq.client_id")
	require(c.SleepHQ.ClientSecret, "sleephq.client_secret")
	require(c.SleepHQ.Username, "sleephq.username")
	require(c.SleepHQ.Password, "sleephq.password")
	require(c.SleepHQ.TeamID, "sleephq.team_id")

	switch c.Cloud.Backend {
	case BackendDrive:
		require(c.Cloud.Drive.CredentialsFile, "cloud.drive.credentials_file")
		require(c.Cloud.Drive.FolderID, "cloud.drive.folder_id")
	case BackendS3:
		require(c.Cloud.S3.Bucket, "cloud.s3.bucket")
		require(c.Cloud.S3.Region, "cloud.s3.region")
	case BackendGCS:
		require(c.Cloud.GCS.Bucket, "cloud.gcs.bucket")
	case BackendNone:
	default:
		errs = append(errs, fmt.Errorf("cloud.backend: unsupported backend %q", c.Cloud.Backend))
	}

	switch c.Mail.Transport {
	case TransportSMTP:
		require(c.Mail.From, "mail.from")
		require(c.Mail.To, "mail.to")
		require(c.Mail.SMTP.Host, "mail.smtp.host")
		if c.Mail.SMTP.Port <= 0 {
			errs = append(errs, fmt.Errorf("mail.smtp.port must be positive"))
		}
	case TransportGmail:
		require(c.Mail.From, "mail.from")
		require(c.Mail.To, "mail.to")
		require(c.Mail.Gmail.CredentialsFile, "mail.gmail.credentials_file")
	case TransportNone:
	default:
		errs = append(errs, fmt.Errorf("mail.transport: unsupported transport %q", c.Mail.Transport))
	}
	if c.Mail.Transport != TransportNone && c.Mail.Timeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("mail.timeout must be positive"))
	}

	if c.Retention.LocalDays < 0 {
		errs = append(errs, fmt.Errorf("retention.local_days must not be negative"))
	}
	if c.Retention.RemoteDays < 0 {
		errs = append(errs, fmt.Errorf("retention.remote_days must not be negative"))
	}
	if c.Logs.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("logs.max_bytes must be positive"))
	}

	return errors.Join(errs...)
}
