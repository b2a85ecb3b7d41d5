package config

import "os"

// MailConfig holds outbound SMTP settings.  The variable names match the
// ones operators already use for the helpdesk deployment.
type MailConfig struct {
	Server       string
	Port         int
	UseTLS       bool // STARTTLS after connecting
	UseSSL       bool // implicit TLS on connect
	Username     string
	Password     string
	FromEmail    string
	FromName     string
	SuppressSend bool // log messages instead of delivering them
}

// LoadMailConfig reads MAIL_* variables.  SSL wins over TLS when both are
// requested, and the default port follows the chosen transport.
func LoadMailConfig() MailConfig {
	useSSL := envBool("MAIL_USE_SSL", false)
	useTLS := envBool("MAIL_USE_TLS", true)
	if useSSL {
		useTLS = false
	}
	defPort := 587
	if useSSL {
		defPort = 465
	}

	from := os.Getenv("MAIL_DEFAULT_EMAIL")
	if from == "" {
		from = os.Getenv("MAIL_USERNAME")
	}
	if from == "" {
		from = "no-reply@example.com"
	}

	return MailConfig{
		Server:       getenv("MAIL_SERVER", "smtp.gmail.com"),
		Port:         envInt("MAIL_PORT", defPort),
		UseTLS:       useTLS,
		UseSSL:       useSSL,
		Username:     os.Getenv("MAIL_USERNAME"),
		Password:     os.Getenv("MAIL_PASSWORD"),
		FromEmail:    from,
		FromName:     getenv("MAIL_DEFAULT_NAME", "Apprentice Helpdesk"),
		SuppressSend: envBool("MAIL_SUPPRESS_SEND", false) || getenv("APP_ENV", "dev") == "test",
	}
}
