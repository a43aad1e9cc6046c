package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvMailgunAPIKey  = "MAILGUN_API_KEY"
	EnvMailgunDomain  = "MAILGUN_DOMAIN"
	EnvMailgunRegion  = "MAILGUN_REGION"
	EnvMailgunAPIBase = "MAILGUN_API_BASE"
	EnvRecipient      = "TICKETWATCH_TO"
)

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ReadEnvFile reads KEY=value pairs from a dotenv file.
// A missing file is not an error and yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return values, nil
}

// ChainLookup returns a LookupFunc that consults primary first and falls
// back to the values of a dotenv file. The process environment is
// usually primary, so exported variables win over .env entries.
func ChainLookup(primary LookupFunc, fallback map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if primary != nil {
			if v, ok := primary(key); ok {
				return v, true
			}
		}
		v, ok := fallback[key]
		return v, ok
	}
}

// ApplyEnv fills the mail settings from the environment. Values already
// set (e.g. from flags) are kept.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	set := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	set(&c.Mail.APIKey, EnvMailgunAPIKey)
	set(&c.Mail.Domain, EnvMailgunDomain)
	set(&c.Mail.Region, EnvMailgunRegion)
	set(&c.Mail.APIBase, EnvMailgunAPIBase)
	set(&c.Mail.To, EnvRecipient)
}

// ApplyFile fills the notification settings that are still empty from
// the notify section of the configuration file.
func (c *Config) ApplyFile(cf *File) {
	if cf == nil {
		return
	}
	if c.Mail.To == "" {
		c.Mail.To = cf.Notify.To
	}
	if c.Mail.From == "" {
		c.Mail.From = cf.Notify.From
	}
	if c.Mail.Region == "" {
		c.Mail.Region = cf.Notify.Region
	}
}
