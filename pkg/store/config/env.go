package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays the deployment environment variables (FLASHAIR_IP,
// CLIENT_ID and friends). Unset or blank variables leave the field untouched.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	days := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return fmt.Errorf("%s: expected a non-negative day count, got %q", key, v)
		}
		*dst = n
		return nil
	}

	str("FLASHAIR_IP", &c.FlashAir.Host)
	str("FLASHAIR_PASSWORD", &c.FlashAir.Password)
	str("DOWNLOAD_DIR", &c.Paths.DownloadDir)
	str("LOG_DIR", &c.Paths.LogDir)

	str("CLIENT_ID", &c.SleepHQ.ClientID)
	str("CLIENT_SECRET", &c.SleepHQ.ClientSecret)
	str("USERNAME", &c.SleepHQ.Username)
	str("PASSWORD", &c.SleepHQ.Password)
	str("TEAM_ID", &c.SleepHQ.TeamID)

	str("CREDENTIALS_JSON", &c.Cloud.Drive.CredentialsFile)
	str("DRIVE_FOLDER_ID", &c.Cloud.Drive.FolderID)

	str("GMAIL_USERNAME", &c.Mail.SMTP.Username)
	str("GMAIL_USERNAME", &c.Mail.From)
	str("GMAIL_APP_PASSWORD", &c.Mail.SMTP.Password)
	str("NOTIFICATION_EMAIL", &c.Mail.To)

	if err := days("DAYS_TO_KEEP_FLASHAIR", &c.Retention.RemoteDays); err != nil {
		return err
	}
	if err := days("DAYS_TO_KEEP_LOCAL", &c.Retention.LocalDays); err != nil {
		return err
	}

	return nil
}
