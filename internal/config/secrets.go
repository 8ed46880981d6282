package config

// Redacted returns a deep-enough copy of cfg with credential fields replaced
// by the redaction placeholder. Use it whenever the active configuration is
// logged or printed so secrets never reach log storage.
func Redacted(cfg *Config) Config {
	out := *cfg

	out.Venues = make(map[string]VenueConfig, len(cfg.Venues))
	for name, v := range cfg.Venues {
		redact(&v.ApiKey)
		redact(&v.ApiSecret)
		if v.Markets != nil {
			markets := make(map[string]string, len(v.Markets))
			for k, m := range v.Markets {
				markets[k] = m
			}
			v.Markets = markets
		}
		out.Venues[name] = v
	}

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)

	// Copy slices so callers cannot mutate the original through the copy.
	if cfg.Coins != nil {
		out.Coins = append([]string(nil), cfg.Coins...)
	}
	if cfg.Kafka.Brokers != nil {
		out.Kafka.Brokers = append([]string(nil), cfg.Kafka.Brokers...)
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
