package store

import (
	"github.com/olimci/sleepsync/pkg/store/config"
)

type ValidateResult struct {
	ConfigPath    string
	Config        config.Config
	CloudBackend  string
	MailTransport string
}

// Validate loads the layered configuration and checks it is complete enough
// for a run.
func (s Store) Validate() (ValidateResult, error) {
	cfg, err := s.LoadConfig()
	if err != nil {
		return ValidateResult{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ValidateResult{}, err
	}

	return ValidateResult{
		ConfigPath:    s.ConfigPath(),
		Config:        cfg,
		CloudBackend:  cfg.Cloud.Backend,
		MailTransport: cfg.Mail.Transport,
	}, nil
}
