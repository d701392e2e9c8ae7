package config

// EmailConfig holds SMTP configuration for the delegation notifier.
// When Host is empty the server falls back to the mock notifier.
type EmailConfig struct {
	Host     string `env:"AAA_SMTP_HOST" env-default:""`
	Port     int    `env:"AAA_SMTP_PORT" env-default:"587"`
	TLS      bool   `env:"AAA_SMTP_TLS" env-default:"true"`
	Username string `env:"AAA_SMTP_USERNAME" env-default:""`
	Password string `env:"AAA_SMTP_PASSWORD" env-default:""`
	From     string `env:"AAA_SMTP_FROM" env-default:"no-reply@aaa.example.org"`
}
