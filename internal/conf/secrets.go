package conf

import (
	"fmt"

	"github.com/tphakala/proxnode/internal/secrets"
)

// resolveSecrets replaces credential settings with their resolved values.
// Settings saved after this hold the plain credentials.
func resolveSecrets(s *Settings) error {
	fields := []struct {
		name   string
		target *string
		ref    secrets.Ref
	}{
		{"uplink.http.token", &s.Uplink.HTTP.Token, secrets.Ref{Value: s.Uplink.HTTP.Token, File: s.Uplink.HTTP.TokenFile}},
		{"uplink.mqtt.username", &s.Uplink.MQTT.Username, secrets.Ref{Value: s.Uplink.MQTT.Username}},
		{"uplink.mqtt.password", &s.Uplink.MQTT.Password, secrets.Ref{Value: s.Uplink.MQTT.Password, File: s.Uplink.MQTT.PasswordFile}},
		{"sentry.dsn", &s.Sentry.DSN, secrets.Ref{Value: s.Sentry.DSN}},
	}
	for _, f := range fields {
		v, err := f.ref.Resolve()
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.target = v
	}

	for i, u := range s.Notify.URLs {
		v, err := secrets.Expand(u)
		if err != nil {
			return fmt.Errorf("notify.urls[%d]: %w", i, err)
		}
		s.Notify.URLs[i] = v
	}
	return nil
}
